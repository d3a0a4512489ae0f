// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Deps contains the dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon.
	Logger zerolog.Logger

	// APIHandler is the HTTP handler for the gateway listener.
	APIHandler http.Handler

	// MetricsHandler serves Prometheus exposition when a dedicated
	// metrics listener is configured.
	MetricsHandler http.Handler

	// MetricsAddr is the dedicated metrics listen address. Empty means
	// metrics share the main listener (or are disabled).
	MetricsAddr string
}

// Validate checks that the dependencies are usable.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	return nil
}
