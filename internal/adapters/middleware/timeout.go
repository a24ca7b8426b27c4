package middleware

import (
	"net/http"
	"time"
)

// Timeout bounds each request to d. Handlers see the deadline through the
// request context, and a request that overruns gets a 503 TIMEOUT envelope.
// A zero d disables the bound.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	body := string(errorBody(codeTimeout, "Request timeout"))

	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		bounded := http.TimeoutHandler(next, d, body)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// the timeout reply carries no headers of its own
			w.Header().Set("Content-Type", "application/json")
			bounded.ServeHTTP(w, r)
		})
	}
}
