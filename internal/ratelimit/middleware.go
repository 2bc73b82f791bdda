package ratelimit

import (
	"net/http"
	"strconv"
)

// DefaultRetryAfterSeconds is the value for the Retry-After header when
// a limit is exceeded.
const DefaultRetryAfterSeconds = 1

// Middleware wraps a handler with per-key rate limiting. keyFunc extracts
// the limiter key from the request; an empty key skips limiting.
// Exceeding the limit returns 429 with a Retry-After header.
func Middleware(limiter *Limiter, keyFunc func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(key) {
				w.Header().Set("Retry-After", strconv.Itoa(DefaultRetryAfterSeconds))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte("Too Many Requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
