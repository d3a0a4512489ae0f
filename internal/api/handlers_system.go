// SPDX-License-Identifier: MIT

package api

import (
	"fmt"
	"net/http"

	"github.com/ManuGH/apigw/internal/httpx"
	xglog "github.com/ManuGH/apigw/internal/log"
)

type serviceInfo struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
}

type infoResponse struct {
	Name            string        `json:"name"`
	Version         string        `json:"version"`
	Environment     string        `json:"environment"`
	Services        []serviceInfo `json:"services"`
	HealthEndpoint  string        `json:"healthEndpoint"`
	MetricsEndpoint *string       `json:"metricsEndpoint"`
}

// handleHealth is the liveness probe. It answers UP whenever the process can
// serve at all; backend state is deliberately not consulted.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.healthMgr.Liveness())
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.healthMgr.Readiness(r.Context()))
}

// handleInfo enumerates the registered services and their public prefixes.
func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	services := make([]serviceInfo, 0, s.registry.Len())
	for _, svc := range s.registry.Services() {
		services = append(services, serviceInfo{Name: svc.Name, Endpoint: svc.PathPrefix})
	}

	resp := infoResponse{
		Name:           "E-Commerce API Gateway",
		Version:        s.cfg.Version,
		Environment:    s.cfg.Environment,
		Services:       services,
		HealthEndpoint: "/health",
	}
	if s.cfg.MetricsEnabled {
		path := s.cfg.MetricsPath
		resp.MetricsEndpoint = &path
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	rid := xglog.RequestIDFromContext(r.Context())
	logger := xglog.WithContext(r.Context(), s.logger)
	logger.Warn().
		Str(xglog.FieldEvent, "route.not_found").
		Str(xglog.FieldMethod, r.Method).
		Str(xglog.FieldPath, r.URL.Path).
		Msg("route not found")
	httpx.WriteError(w, http.StatusNotFound, "Not Found",
		fmt.Sprintf("The requested resource at %s was not found", r.URL.Path), rid)
}
