// SPDX-License-Identifier: MIT

package config

import (
	"strings"
)

// Loader assembles the gateway configuration with precedence
// ENV > file > defaults.
type Loader struct {
	path    string
	version string
}

// NewLoader creates a Loader. path may be empty (no config file).
func NewLoader(path, version string) *Loader {
	return &Loader{path: path, version: version}
}

// Load builds and validates the final configuration.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.path != "" {
		if err := mergeFile(&cfg, l.path); err != nil {
			return AppConfig{}, err
		}
	}
	applyEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg. Service URL and timeout
// variables follow the <NAME>_SERVICE_URL / <NAME>_SERVICE_TIMEOUT convention
// of the previous deployment.
func applyEnv(cfg *AppConfig) {
	if addr := ParseString("LISTEN_ADDR", ""); addr != "" {
		cfg.ListenAddr = addr
	} else if port := ParseString("PORT", ""); port != "" {
		cfg.ListenAddr = ":" + port
	}
	cfg.Environment = ParseString("ENVIRONMENT", cfg.Environment)

	for name, svc := range cfg.Services {
		prefix := strings.ToUpper(name) + "_SERVICE"
		svc.URL = ParseString(prefix+"_URL", svc.URL)
		svc.Timeout = ParseDuration(prefix+"_TIMEOUT", svc.Timeout)
		cfg.Services[name] = svc
	}

	cfg.LogLevel = ParseString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = ParseString("LOG_FORMAT", cfg.LogFormat)

	cfg.MetricsEnabled = ParseBool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.MetricsPath = ParseString("METRICS_ENDPOINT", cfg.MetricsPath)
	cfg.MetricsAddr = ParseString("METRICS_ADDR", cfg.MetricsAddr)

	cfg.CORSOrigins = ParseStringSlice("CORS_ORIGIN", cfg.CORSOrigins)
	cfg.CORSCredentials = ParseBool("CORS_CREDENTIALS", cfg.CORSCredentials)

	cfg.RateLimitEnabled = ParseBool("RATE_LIMIT_ENABLED", cfg.RateLimitEnabled)
	cfg.RateLimitRequests = ParseInt("RATE_LIMIT_REQUESTS", cfg.RateLimitRequests)
	cfg.RateLimitWindow = ParseDuration("RATE_LIMIT_WINDOW", cfg.RateLimitWindow)

	cfg.TracingEnabled = ParseBool("TRACING_ENABLED", cfg.TracingEnabled)
	cfg.TracingExporter = ParseString("TRACING_EXPORTER", cfg.TracingExporter)
	cfg.TracingEndpoint = ParseString("OTLP_ENDPOINT", cfg.TracingEndpoint)
	cfg.TracingSampleRate = ParseFloat("TRACING_SAMPLE_RATE", cfg.TracingSampleRate)

	cfg.ReadTimeout = ParseDuration("READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = ParseDuration("WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.IdleTimeout = ParseDuration("IDLE_TIMEOUT", cfg.IdleTimeout)
	cfg.ShutdownTimeout = ParseDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
}
