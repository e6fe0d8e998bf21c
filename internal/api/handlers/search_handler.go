package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/nearbuy/nearbuy-gateway/internal/application/services"
	"github.com/nearbuy/nearbuy-gateway/internal/domain/entities"
)

var errInvalidLocation = errors.New("lat, lon and radius_km must be valid numbers")

// SearchHandler handles search requests
type SearchHandler struct {
	search    *services.SearchService
	analytics *services.SearchAnalyticsService
}

// NewSearchHandler creates a new search handler. analytics may be nil when
// the analytics store is not configured.
func NewSearchHandler(search *services.SearchService, analytics *services.SearchAnalyticsService) *SearchHandler {
	return &SearchHandler{
		search:    search,
		analytics: analytics,
	}
}

// Search handles GET /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	kind, ok := entities.ParseSearchKind(query.Get("type"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "type must be one of product, category, shop")
		return
	}
	sortMode, ok := entities.ParseSortMode(query.Get("sort"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "sort must be one of relevance, price_asc, price_desc, name")
		return
	}

	q := entities.QueryContext{
		Term:  query.Get("q"),
		City:  query.Get("city"),
		Brand: query.Get("brand"),
		Sort:  sortMode,
	}

	var err error
	if q.MinPrice, err = parseOptionalFloat(query.Get("min_price")); err != nil {
		respondWithError(w, http.StatusBadRequest, "min_price must be a number")
		return
	}
	if q.MaxPrice, err = parseOptionalFloat(query.Get("max_price")); err != nil {
		respondWithError(w, http.StatusBadRequest, "max_price must be a number")
		return
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		respondWithError(w, http.StatusBadRequest, "min_price must not exceed max_price")
		return
	}

	loc, err := parseOptionalLocation(query.Get("lat"), query.Get("lon"), query.Get("radius_km"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.Location = loc

	result := h.search.Search(r.Context(), kind, q)
	respondWithJSON(w, http.StatusOK, result)
}

// NearbyShops handles GET /api/shops/nearby
func (h *SearchHandler) NearbyShops(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	loc, err := parseOptionalLocation(query.Get("lat"), query.Get("lon"), query.Get("radius_km"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if loc == nil {
		respondWithError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}

	shops, err := h.search.NearbyShops(r.Context(), *loc)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"shops": shops,
		"count": len(shops),
	})
}

// ZeroResultQueries handles GET /api/analytics/zero-result-queries
func (h *SearchHandler) ZeroResultQueries(w http.ResponseWriter, r *http.Request) {
	if h.analytics == nil {
		respondWithError(w, http.StatusServiceUnavailable, "search analytics is not configured")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := h.analytics.GetZeroResultQueries(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"queries": events,
		"count":   len(events),
	})
}

func parseOptionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseOptionalLocation(lat, lon, radius string) (*entities.GeoPoint, error) {
	if lat == "" && lon == "" {
		return nil, nil
	}
	latV, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, errInvalidLocation
	}
	lonV, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return nil, errInvalidLocation
	}
	loc := &entities.GeoPoint{Latitude: latV, Longitude: lonV, RadiusKm: 5}
	if radius != "" {
		radiusV, err := strconv.ParseFloat(radius, 64)
		if err != nil || radiusV <= 0 {
			return nil, errInvalidLocation
		}
		loc.RadiusKm = radiusV
	}
	return loc, nil
}
