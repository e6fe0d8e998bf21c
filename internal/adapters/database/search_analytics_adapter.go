package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/nearbuy/nearbuy-gateway/internal/domain/entities"
	"github.com/nearbuy/nearbuy-gateway/internal/domain/repositories"
	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/clients/postgres"
	apperrors "github.com/nearbuy/nearbuy-gateway/pkg/errors"
)

// SearchAnalyticsAdapter persists search events in Postgres.
type SearchAnalyticsAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSearchAnalyticsAdapter creates a new search analytics adapter.
func NewSearchAnalyticsAdapter(client *postgres.Client) repositories.SearchAnalyticsRepository {
	return &SearchAnalyticsAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// LogEvent inserts a search event record.
func (a *SearchAnalyticsAdapter) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	record := goqu.Record{
		"id":           event.ID,
		"kind":         event.Kind,
		"query":        event.Query,
		"city":         sql.NullString{String: event.City, Valid: event.City != ""},
		"sort_mode":    event.SortMode,
		"result_count": event.ResultCount,
		"fallback":     event.Fallback,
		"latency_ms":   event.LatencyMs,
		"created_at":   event.CreatedAt,
	}

	query, args, err := a.db.Insert("search_events").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build search event insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to log search event", err)
	}

	return nil
}

// GetZeroResultQueries returns the most recent searches that produced no
// results, newest first.
func (a *SearchAnalyticsAdapter) GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query, args, err := a.db.From("search_events").
		Select("id", "kind", "query", "city", "sort_mode", "result_count", "fallback", "latency_ms", "created_at").
		Where(goqu.C("result_count").Eq(0), goqu.C("fallback").IsFalse()).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build zero result query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get zero result queries", err)
	}
	defer rows.Close()

	var events []*entities.SearchEvent
	for rows.Next() {
		e := &entities.SearchEvent{}
		var city sql.NullString
		err := rows.Scan(
			&e.ID,
			&e.Kind,
			&e.Query,
			&city,
			&e.SortMode,
			&e.ResultCount,
			&e.Fallback,
			&e.LatencyMs,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan search event", err)
		}
		e.City = city.String
		events = append(events, e)
	}

	return events, rows.Err()
}
