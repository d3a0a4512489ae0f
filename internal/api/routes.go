// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/apigw/internal/api/middleware"
)

func (s *Server) routes() http.Handler {
	var rl *middleware.RateLimitConfig
	if s.cfg.RateLimitEnabled {
		rl = &middleware.RateLimitConfig{
			RequestLimit: s.cfg.RateLimitRequests,
			WindowSize:   s.cfg.RateLimitWindow,
		}
	}
	tracingService := ""
	if s.cfg.TracingEnabled {
		tracingService = "api-gateway"
	}

	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.CORSOrigins,
		CORSCredentials:       s.cfg.CORSCredentials,
		EnableSecurityHeaders: true,
		EnableMetrics:         s.cfg.MetricsEnabled,
		TracingService:        tracingService,
		EnableLogging:         true,
		RateLimit:             rl,
	})

	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleReady)
	r.Get("/", s.handleInfo)

	// Metrics share the main listener unless a dedicated metrics address is
	// configured; then the daemon serves them separately.
	if s.cfg.MetricsEnabled && s.cfg.MetricsAddr == "" {
		r.Method(http.MethodGet, s.cfg.MetricsPath, promhttp.Handler())
	}

	r.Handle("/api/*", s.gateway.Handler())

	r.NotFound(s.handleNotFound)
	return r
}
