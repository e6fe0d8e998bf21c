package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearbuy/nearbuy-gateway/internal/application/services"
	"github.com/nearbuy/nearbuy-gateway/internal/domain/entities"
)

func newSearchFixture(client *stubBackend) *SearchHandler {
	search := services.NewSearchService(client, services.NewRankingService(), nil)
	return NewSearchHandler(search, nil)
}

func TestSearchReturnsRankedResults(t *testing.T) {
	handler := newSearchFixture(&stubBackend{
		products: []entities.ProductResult{
			{ProductID: "p1", Name: "Running Shoe"},
			{ProductID: "p2", Name: "Shoe"},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=shoe&type=product", nil)
	w := httptest.NewRecorder()
	handler.Search(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Status   string                   `json:"status"`
		Fallback bool                     `json:"fallback"`
		Items    []map[string]interface{} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "success", result.Status)
	assert.False(t, result.Fallback)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "Shoe", result.Items[0]["product_name"])
	assert.Equal(t, float64(5), result.Items[0]["score"])
}

func TestSearchEmptyBackendYieldsFallback(t *testing.T) {
	handler := newSearchFixture(&stubBackend{})

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=xyz", nil)
	w := httptest.NewRecorder()
	handler.Search(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Fallback bool                     `json:"fallback"`
		Items    []map[string]interface{} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Fallback)
	assert.Len(t, result.Items, 5)
}

func TestSearchRejectsUnknownSortMode(t *testing.T) {
	handler := newSearchFixture(&stubBackend{})

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=milk&sort=cheapest", nil)
	w := httptest.NewRecorder()
	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchRejectsInvalidPriceBounds(t *testing.T) {
	handler := newSearchFixture(&stubBackend{})

	tests := []struct {
		name  string
		query string
	}{
		{"non-numeric min", "/api/search?q=milk&min_price=abc"},
		{"non-numeric max", "/api/search?q=milk&max_price=abc"},
		{"inverted bounds", "/api/search?q=milk&min_price=100&max_price=10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.query, nil)
			w := httptest.NewRecorder()
			handler.Search(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSearchRejectsPartialLocation(t *testing.T) {
	handler := newSearchFixture(&stubBackend{})

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=milk&lat=23.25", nil)
	w := httptest.NewRecorder()
	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNearbyShopsRequiresLocation(t *testing.T) {
	handler := newSearchFixture(&stubBackend{})

	req := httptest.NewRequest(http.MethodGet, "/api/shops/nearby", nil)
	w := httptest.NewRecorder()
	handler.NearbyShops(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNearbyShopsReturnsShops(t *testing.T) {
	handler := newSearchFixture(&stubBackend{
		nearbyShops: []entities.ShopResult{
			{ShopID: "s1", Name: "New Market Grocers", City: "Bhopal"},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/shops/nearby?lat=23.25&lon=77.41&radius_km=5", nil)
	w := httptest.NewRecorder()
	handler.NearbyShops(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestZeroResultQueriesUnavailableWithoutAnalytics(t *testing.T) {
	handler := newSearchFixture(&stubBackend{})

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/zero-result-queries", nil)
	w := httptest.NewRecorder()
	handler.ZeroResultQueries(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
