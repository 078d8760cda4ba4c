package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit caps requests per client IP over a sliding window. Pipeline
// refreshes hit the upstream database, so the ceiling guards the database
// more than the server. A window of zero falls back to one minute.
func RateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if window <= 0 {
		window = time.Minute
	}
	return httprate.LimitByIP(requests, window)
}
