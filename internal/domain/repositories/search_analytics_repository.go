package repositories

import (
	"context"

	"github.com/nearbuy/nearbuy-gateway/internal/domain/entities"
)

// SearchAnalyticsRepository records search interactions for later analysis.
type SearchAnalyticsRepository interface {
	LogEvent(ctx context.Context, event *entities.SearchEvent) error
	GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error)
}
