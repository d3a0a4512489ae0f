// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/apigw/internal/httpx"
	"github.com/ManuGH/apigw/internal/log"
)

// RateLimitConfig holds configuration for the global rate limiter.
type RateLimitConfig struct {
	// RequestLimit is the maximum number of requests allowed in the window.
	RequestLimit int
	// WindowSize is the time window for rate limiting.
	WindowSize time.Duration
}

// RateLimit creates an IP-keyed rate limiting middleware using httprate's
// sliding window counter. Exceeding the limit yields a 429 with the uniform
// error envelope.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(cfg.WindowSize.Seconds())))
			httpx.WriteError(w, http.StatusTooManyRequests,
				"Too Many Requests", "Rate limit exceeded. Please try again later.",
				log.RequestIDFromContext(r.Context()))
		}),
	)
}
