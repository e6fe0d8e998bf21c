package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nearbuy/nearbuy-gateway/internal/domain/entities"
	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/clients/backendapi"
	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/observability"
	apperrors "github.com/nearbuy/nearbuy-gateway/pkg/errors"
)

// SearchStatus is the lifecycle of one search invocation.
type SearchStatus string

const (
	SearchIdle      SearchStatus = "idle"
	SearchSearching SearchStatus = "searching"
	SearchSuccess   SearchStatus = "success"
	SearchFailed    SearchStatus = "failed"
)

// SearchResult is the outcome of one search invocation, ready for rendering.
type SearchResult struct {
	Status   SearchStatus          `json:"status"`
	Items    []entities.ResultItem `json:"items"`
	Fallback bool                  `json:"fallback"`
	// Message is the user-visible empty-state or error text, if any.
	Message string `json:"message,omitempty"`
}

// SearchService routes searches to the right backend endpoint, applies the
// ranking pipeline, and substitutes the fallback catalog where policy allows.
type SearchService struct {
	client    backendapi.Client
	ranker    *RankingService
	analytics *SearchAnalyticsService

	mu   sync.RWMutex
	seq  uint64
	last SearchResult
}

// NewSearchService creates a search service. analytics may be nil when the
// analytics store is not configured.
func NewSearchService(client backendapi.Client, ranker *RankingService, analytics *SearchAnalyticsService) *SearchService {
	return &SearchService{
		client:    client,
		ranker:    ranker,
		analytics: analytics,
		last:      SearchResult{Status: SearchIdle},
	}
}

// Search executes one search invocation. Backend failures never propagate as
// errors: they resolve to a failed result carrying a user-visible message
// and, for non-city queries, the fallback catalog.
func (s *SearchService) Search(ctx context.Context, kind entities.SearchKind, q entities.QueryContext) SearchResult {
	seq := s.begin()
	start := time.Now()

	raw, fallback, err := s.fetch(ctx, kind, q)

	var result SearchResult
	switch {
	case err != nil:
		result = s.failedResult(kind, q, err)
	default:
		result = SearchResult{
			Status:   SearchSuccess,
			Items:    s.ranker.Rank(raw, q),
			Fallback: fallback,
		}
		if len(result.Items) == 0 {
			result.Message = emptyStateMessage(kind, q)
		}
	}

	s.complete(seq, result)
	s.trackSearch(ctx, kind, q, result, time.Since(start))

	if err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("kind", string(kind)).
			Str("query", q.Term).
			Msg("search backend call failed")
	}

	return result
}

// fetch routes the query to the backend and applies the fallback policy.
// City-filtered queries never receive the fallback catalog; the caller shows
// a genuine empty state instead.
func (s *SearchService) fetch(ctx context.Context, kind entities.SearchKind, q entities.QueryContext) ([]entities.ResultItem, bool, error) {
	switch kind {
	case entities.SearchKindShop:
		if q.CityFiltered() {
			shops, err := s.client.ShopsByCity(ctx, q.City)
			return shopItems(shops), false, err
		}
		shops, err := s.client.SearchShops(ctx, q.Term)
		if err != nil {
			return nil, false, err
		}
		if len(shops) == 0 {
			return s.ranker.FallbackShops(), true, nil
		}
		return shopItems(shops), false, nil

	case entities.SearchKindCategory:
		products, err := s.client.SearchCategories(ctx, q.Term)
		if err != nil {
			return nil, false, err
		}
		if len(products) == 0 {
			return s.ranker.FallbackProducts(), true, nil
		}
		return productItems(products), false, nil

	default:
		if q.CityFiltered() {
			products, err := s.client.ProductsInCity(ctx, q.City, q.Term)
			return productItems(products), false, err
		}
		var products []entities.ProductResult
		var err error
		if q.Location != nil {
			products, err = s.client.SearchProductsNearby(ctx, q.Term, *q.Location)
			if err == nil && len(products) == 0 {
				// widen to a global search before giving up
				products, err = s.client.SearchProducts(ctx, q.Term)
			}
		} else {
			products, err = s.client.SearchProducts(ctx, q.Term)
		}
		if err != nil {
			return nil, false, err
		}
		if len(products) == 0 {
			return s.ranker.FallbackProducts(), true, nil
		}
		return productItems(products), false, nil
	}
}

// failedResult applies the error-path fallback policy: non-city queries get
// the fallback catalog alongside the error message, city-filtered product
// queries get an empty list.
func (s *SearchService) failedResult(kind entities.SearchKind, q entities.QueryContext, err error) SearchResult {
	result := SearchResult{
		Status:  SearchFailed,
		Message: errorMessage(err),
	}
	if q.CityFiltered() {
		return result
	}
	result.Fallback = true
	if kind == entities.SearchKindShop {
		result.Items = s.ranker.Rank(s.ranker.FallbackShops(), q)
	} else {
		result.Items = s.ranker.Rank(s.ranker.FallbackProducts(), q)
	}
	return result
}

// NearbyShops lists shops around the user's location. No fallback applies;
// an empty answer renders as an empty list.
func (s *SearchService) NearbyShops(ctx context.Context, loc entities.GeoPoint) ([]entities.ShopResult, error) {
	shops, err := s.client.ShopsNearby(ctx, loc)
	if err != nil {
		return nil, err
	}
	return shops, nil
}

// Last returns the most recently completed search result, or the idle state.
func (s *SearchService) Last() SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *SearchService) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.last.Status = SearchSearching
	return s.seq
}

// complete stores the result only if no newer search has begun since seq was
// issued. A stale result is still returned to its own caller, it just must
// not overwrite the newer invocation's state.
func (s *SearchService) complete(seq uint64, result SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return
	}
	s.last = result
}

func (s *SearchService) trackSearch(ctx context.Context, kind entities.SearchKind, q entities.QueryContext, result SearchResult, latency time.Duration) {
	if s.analytics == nil {
		return
	}
	s.analytics.TrackSearch(ctx, &entities.SearchEvent{
		Kind:        string(kind),
		Query:       q.Term,
		City:        q.City,
		SortMode:    string(q.Sort),
		ResultCount: len(result.Items),
		Fallback:    result.Fallback,
		LatencyMs:   int(latency.Milliseconds()),
	})
}

func emptyStateMessage(kind entities.SearchKind, q entities.QueryContext) string {
	if q.CityFiltered() {
		if kind == entities.SearchKindShop {
			return "No shops available in " + q.City
		}
		return "No products available in " + q.City
	}
	return "No results found. Try a different keyword."
}

func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "Failed to fetch search results"
}

func productItems(products []entities.ProductResult) []entities.ResultItem {
	items := make([]entities.ResultItem, len(products))
	for i, p := range products {
		items[i] = entities.ProductItem(p)
	}
	return items
}

func shopItems(shops []entities.ShopResult) []entities.ResultItem {
	items := make([]entities.ResultItem, len(shops))
	for i, sh := range shops {
		items[i] = entities.ShopItem(sh)
	}
	return items
}
