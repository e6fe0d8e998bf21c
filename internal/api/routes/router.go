package routes

import (
	"net/http"

	"github.com/nearbuy/nearbuy-gateway/internal/api/handlers"
	"github.com/nearbuy/nearbuy-gateway/internal/api/middleware"
	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	sessionHandler *handlers.SessionHandler
	searchHandler  *handlers.SearchHandler
	ownerHandler   *handlers.OwnerHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router. cacheMiddleware and metrics may be nil when
// the corresponding subsystem is not configured.
func NewRouter(
	sessionHandler *handlers.SessionHandler,
	searchHandler *handlers.SearchHandler,
	ownerHandler *handlers.OwnerHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		sessionHandler:  sessionHandler,
		searchHandler:   searchHandler,
		ownerHandler:    ownerHandler,
		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Session endpoints
	r.mux.HandleFunc("GET /api/session", r.sessionHandler.GetSession)
	r.mux.HandleFunc("POST /api/session/bootstrap", r.sessionHandler.Bootstrap)
	r.mux.HandleFunc("POST /api/session/refresh", r.sessionHandler.Refresh)
	r.mux.HandleFunc("POST /api/login", r.sessionHandler.Login)
	r.mux.HandleFunc("POST /api/owner/login", r.sessionHandler.OwnerLogin)
	r.mux.HandleFunc("POST /api/register", r.sessionHandler.Register)
	r.mux.HandleFunc("POST /api/logout", r.sessionHandler.Logout)

	// Search endpoints
	r.mux.HandleFunc("GET /api/search", r.searchHandler.Search)
	r.mux.HandleFunc("GET /api/shops/nearby", r.searchHandler.NearbyShops)
	r.mux.HandleFunc("GET /api/analytics/zero-result-queries", r.searchHandler.ZeroResultQueries)

	// Owner inventory endpoints
	r.mux.HandleFunc("POST /api/owner/shops/{shopID}/products", r.ownerHandler.AddProduct)
	r.mux.HandleFunc("PATCH /api/owner/shops/{shopID}/products/{productID}", r.ownerHandler.UpdateProduct)
	r.mux.HandleFunc("DELETE /api/owner/shops/{shopID}/products/{productID}", r.ownerHandler.DeleteProduct)

	// Middleware chain, innermost first
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}
	if r.metrics != nil {
		handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	}
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.RecoverMiddleware(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
