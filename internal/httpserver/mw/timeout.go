package mw

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// TimeoutExcept applies chi's Timeout to every request whose path does not
// end with one of the skip suffixes (long-lived streams).
func TimeoutExcept(timeout time.Duration, skip ...string) func(http.Handler) http.Handler {
	if timeout <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	withTimeout := middleware.Timeout(timeout)

	return func(next http.Handler) http.Handler {
		timed := withTimeout(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, s := range skip {
				if strings.HasSuffix(r.URL.Path, s) {
					next.ServeHTTP(w, r)
					return
				}
			}
			timed.ServeHTTP(w, r)
		})
	}
}
