// SPDX-License-Identifier: MIT

// Package config loads and validates the gateway configuration. Precedence is
// ENV > file > defaults; the resulting AppConfig is immutable for the process
// lifetime.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ServiceConfig describes one backend service the gateway proxies to.
type ServiceConfig struct {
	URL     string
	Timeout time.Duration
}

// AppConfig is the full gateway configuration.
type AppConfig struct {
	ListenAddr  string
	Version     string
	Environment string

	Services map[string]ServiceConfig

	LogLevel  string
	LogFormat string

	MetricsEnabled bool
	MetricsPath    string
	MetricsAddr    string // non-empty: expose metrics on a separate listener

	CORSOrigins     []string
	CORSCredentials bool

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	TracingEnabled    bool
	TracingExporter   string // "http" or "grpc"
	TracingEndpoint   string
	TracingSampleRate float64

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
}

const defaultServiceTimeout = 5 * time.Second

// Defaults returns the built-in configuration: the five well-known backends
// on their conventional local ports.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr:  ":8080",
		Environment: "development",
		Services: map[string]ServiceConfig{
			"user":    {URL: "http://localhost:3001", Timeout: defaultServiceTimeout},
			"product": {URL: "http://localhost:3002", Timeout: defaultServiceTimeout},
			"cart":    {URL: "http://localhost:3003", Timeout: defaultServiceTimeout},
			"order":   {URL: "http://localhost:3004", Timeout: defaultServiceTimeout},
			"payment": {URL: "http://localhost:3005", Timeout: defaultServiceTimeout},
		},
		LogLevel:          "info",
		LogFormat:         "json",
		MetricsEnabled:    true,
		MetricsPath:       "/metrics",
		CORSOrigins:       []string{"*"},
		TracingExporter:   "http",
		TracingSampleRate: 1.0,
		RateLimitRequests: 600,
		RateLimitWindow:   time.Minute,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   20 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// Validate checks that the configuration can actually serve traffic.
// Invalid configuration is a fatal startup error, never a runtime one.
func Validate(cfg AppConfig) error {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("listen address is required")
	}
	if len(cfg.Services) == 0 {
		return fmt.Errorf("at least one backend service is required")
	}
	for name, svc := range cfg.Services {
		if name == "" || strings.ContainsAny(name, "/ ") {
			return fmt.Errorf("invalid service name %q", name)
		}
		u, err := url.Parse(svc.URL)
		if err != nil {
			return fmt.Errorf("service %s: parse base URL %q: %w", name, svc.URL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("service %s: base URL %q must be http or https", name, svc.URL)
		}
		if u.Host == "" {
			return fmt.Errorf("service %s: base URL %q has no host", name, svc.URL)
		}
		if svc.Timeout <= 0 {
			return fmt.Errorf("service %s: timeout must be positive, got %s", name, svc.Timeout)
		}
	}
	if cfg.MetricsEnabled && !strings.HasPrefix(cfg.MetricsPath, "/") {
		return fmt.Errorf("metrics path %q must start with /", cfg.MetricsPath)
	}
	return nil
}
