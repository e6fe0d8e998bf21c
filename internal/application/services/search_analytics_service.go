package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nearbuy/nearbuy-gateway/internal/domain/entities"
	"github.com/nearbuy/nearbuy-gateway/internal/domain/repositories"
)

// SearchAnalyticsService records search events for later analysis.
type SearchAnalyticsService struct {
	repo repositories.SearchAnalyticsRepository
}

// NewSearchAnalyticsService creates a search analytics service.
func NewSearchAnalyticsService(repo repositories.SearchAnalyticsRepository) *SearchAnalyticsService {
	return &SearchAnalyticsService{repo: repo}
}

// TrackSearch logs a search event in the background so the user request is
// never blocked on analytics.
func (s *SearchAnalyticsService) TrackSearch(ctx context.Context, event *entities.SearchEvent) {
	go func() {
		// fresh context: the request context may already be cancelled
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.repo.LogEvent(bgCtx, event); err != nil {
			log.Warn().Err(err).Msg("failed to log search event")
		}
	}()
}

// GetZeroResultQueries returns recent searches that produced no results,
// excluding fallback substitutions.
func (s *SearchAnalyticsService) GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	return s.repo.GetZeroResultQueries(ctx, limit)
}
