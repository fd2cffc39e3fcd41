package api

import (
	"encoding/json/v2"
	"net"
	"net/http"
	"strings"

	"github.com/Duke0404/readersync/internal/ratelimit"
)

// authRateLimit throttles authentication attempts per client address so a
// misbehaving UI cannot hammer the backend with credential requests.
func authRateLimit(limiter *ratelimit.KeyedRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/v1/auth/") {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(clientKey(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.MarshalWrite(w, &APIError{
					status:  http.StatusTooManyRequests,
					Code:    "RATE_LIMITED",
					Message: "Too many authentication attempts, slow down",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey extracts the client host for rate limiting, falling back to the
// raw RemoteAddr when it has no port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
