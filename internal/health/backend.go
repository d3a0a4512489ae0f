// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// BackendChecker probes one backend service's base URL. Any HTTP response,
// regardless of status code, counts as reachable; only transport failures
// mark the backend degraded.
type BackendChecker struct {
	name    string
	baseURL *url.URL
	client  *http.Client
}

// NewBackendChecker creates a checker for the named backend.
func NewBackendChecker(name string, baseURL *url.URL) *BackendChecker {
	return &BackendChecker{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 2 * time.Second},
	}
}

// Name implements Checker.
func (c *BackendChecker) Name() string {
	return c.name
}

// Check implements Checker.
func (c *BackendChecker) Check(ctx context.Context) CheckResult {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error()}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return CheckResult{Status: StatusDegraded, Message: "backend unreachable", Error: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	return CheckResult{Status: StatusUp, Message: fmt.Sprintf("responded %d", resp.StatusCode)}
}
