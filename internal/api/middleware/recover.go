package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/observability"
)

// RecoverMiddleware converts panics into a generic recoverable-error response
// instead of tearing down the connection.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				observability.LoggerFromContext(r.Context()).Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("panic recovered while handling request")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "something went wrong, please try again",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
