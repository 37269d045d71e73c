package mw

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
)

// CORS lets browsers on the listed origins call the API ("*" for any).
// An empty list keeps the API same-origin only. Disallowed origins simply
// get no CORS headers.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return passthrough
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost,
			http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         int((10 * time.Minute).Seconds()),
	})
}
