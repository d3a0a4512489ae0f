// SPDX-License-Identifier: MIT

// Package api provides the gateway's HTTP server: boundary middleware,
// system endpoints and the mounted proxy dispatcher.
package api

import (
	"net/http"

	"github.com/ManuGH/apigw/internal/config"
	"github.com/ManuGH/apigw/internal/health"
	xglog "github.com/ManuGH/apigw/internal/log"
	"github.com/ManuGH/apigw/internal/proxy"
	"github.com/rs/zerolog"
)

// Server is the HTTP ingress for the gateway.
type Server struct {
	cfg       config.AppConfig
	registry  *config.Registry
	gateway   *proxy.Gateway
	healthMgr *health.Manager
	logger    zerolog.Logger
}

// New creates the server. Backend checkers are registered for the readiness
// endpoint only; liveness never probes backends.
func New(cfg config.AppConfig, registry *config.Registry, gw *proxy.Gateway) *Server {
	hm := health.NewManager()
	for _, svc := range registry.Services() {
		hm.RegisterChecker(health.NewBackendChecker(svc.Name, svc.BaseURL))
	}

	return &Server{
		cfg:       cfg,
		registry:  registry,
		gateway:   gw,
		healthMgr: hm,
		logger:    xglog.WithComponent("api"),
	}
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// HealthManager exposes the health manager for additional checker wiring.
func (s *Server) HealthManager() *health.Manager {
	return s.healthMgr
}
