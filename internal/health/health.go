// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness checks. Liveness reports on
// the gateway process only; backend reachability is surfaced through the
// readiness check and never affects liveness.
package health

import (
	"context"
	"time"
)

// Status represents a component status.
type Status string

const (
	StatusUp       Status = "UP"
	StatusDegraded Status = "DEGRADED"
	StatusDown     Status = "DOWN"
)

// CheckResult represents the result of one component check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LivenessResponse is the /health payload. It is independent of backend
// health: if the process can answer, it is UP.
type LivenessResponse struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse is the /health/ready payload.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for readiness checks.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager runs liveness and readiness checks.
type Manager struct {
	checkers []Checker
}

// NewManager creates a health check manager.
func NewManager() *Manager {
	return &Manager{}
}

// RegisterChecker adds a readiness checker.
func (m *Manager) RegisterChecker(c Checker) {
	m.checkers = append(m.checkers, c)
}

// Liveness reports that the process is alive.
func (m *Manager) Liveness() LivenessResponse {
	return LivenessResponse{Status: StatusUp, Timestamp: time.Now().UTC()}
}

// Readiness runs all registered checkers. Checkers are informational: a
// degraded backend is reported but does not flip readiness to false, since
// the gateway can still serve every other route.
func (m *Manager) Readiness(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusUp,
		Timestamp: time.Now().UTC(),
	}
	if len(m.checkers) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		resp.Checks[checker.Name()] = result
		if result.Status != StatusUp && resp.Status == StatusUp {
			resp.Status = StatusDegraded
		}
	}
	return resp
}
