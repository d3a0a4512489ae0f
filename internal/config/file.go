// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML values in Go duration syntax ("5s") or as bare
// integers read as milliseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// fileConfig mirrors the YAML configuration file layout.
type fileConfig struct {
	Listen   string `yaml:"listen"`
	Services map[string]struct {
		URL     string   `yaml:"url"`
		Timeout Duration `yaml:"timeout"`
	} `yaml:"services"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled *bool  `yaml:"enabled"`
		Path    string `yaml:"path"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
	CORS struct {
		Origins     []string `yaml:"origins"`
		Credentials *bool    `yaml:"credentials"`
	} `yaml:"cors"`
	RateLimit struct {
		Enabled  *bool    `yaml:"enabled"`
		Requests int      `yaml:"requests"`
		Window   Duration `yaml:"window"`
	} `yaml:"rateLimit"`
	Tracing struct {
		Enabled    *bool    `yaml:"enabled"`
		Exporter   string   `yaml:"exporter"`
		Endpoint   string   `yaml:"endpoint"`
		SampleRate *float64 `yaml:"sampleRate"`
	} `yaml:"tracing"`
}

// mergeFile overlays values from the YAML file at path onto cfg.
func mergeFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Listen != "" {
		cfg.ListenAddr = fc.Listen
	}
	for name, svc := range fc.Services {
		merged := cfg.Services[name]
		if svc.URL != "" {
			merged.URL = svc.URL
		}
		if svc.Timeout != 0 {
			merged.Timeout = time.Duration(svc.Timeout)
		}
		if merged.Timeout == 0 {
			merged.Timeout = defaultServiceTimeout
		}
		cfg.Services[name] = merged
	}
	if fc.Logging.Level != "" {
		cfg.LogLevel = fc.Logging.Level
	}
	if fc.Logging.Format != "" {
		cfg.LogFormat = fc.Logging.Format
	}
	if fc.Metrics.Enabled != nil {
		cfg.MetricsEnabled = *fc.Metrics.Enabled
	}
	if fc.Metrics.Path != "" {
		cfg.MetricsPath = fc.Metrics.Path
	}
	if fc.Metrics.Addr != "" {
		cfg.MetricsAddr = fc.Metrics.Addr
	}
	if len(fc.CORS.Origins) > 0 {
		cfg.CORSOrigins = fc.CORS.Origins
	}
	if fc.CORS.Credentials != nil {
		cfg.CORSCredentials = *fc.CORS.Credentials
	}
	if fc.RateLimit.Enabled != nil {
		cfg.RateLimitEnabled = *fc.RateLimit.Enabled
	}
	if fc.RateLimit.Requests > 0 {
		cfg.RateLimitRequests = fc.RateLimit.Requests
	}
	if fc.RateLimit.Window != 0 {
		cfg.RateLimitWindow = time.Duration(fc.RateLimit.Window)
	}
	if fc.Tracing.Enabled != nil {
		cfg.TracingEnabled = *fc.Tracing.Enabled
	}
	if fc.Tracing.Exporter != "" {
		cfg.TracingExporter = fc.Tracing.Exporter
	}
	if fc.Tracing.Endpoint != "" {
		cfg.TracingEndpoint = fc.Tracing.Endpoint
	}
	if fc.Tracing.SampleRate != nil {
		cfg.TracingSampleRate = *fc.Tracing.SampleRate
	}
	return nil
}
