package entities

import (
	"time"
)

// SearchEvent represents a single search interaction for analytics.
type SearchEvent struct {
	ID          string    `json:"id" db:"id"`
	Kind        string    `json:"kind" db:"kind"`
	Query       string    `json:"query" db:"query"`
	City        string    `json:"city,omitempty" db:"city"`
	SortMode    string    `json:"sort_mode" db:"sort_mode"`
	ResultCount int       `json:"result_count" db:"result_count"`
	Fallback    bool      `json:"fallback" db:"fallback"`
	LatencyMs   int       `json:"latency_ms" db:"latency_ms"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
