// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/apigw/internal/api"
	"github.com/ManuGH/apigw/internal/config"
	"github.com/ManuGH/apigw/internal/daemon"
	xglog "github.com/ManuGH/apigw/internal/log"
	"github.com/ManuGH/apigw/internal/proxy"
	"github.com/ManuGH/apigw/internal/telemetry"
)

var (
	version   = "1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration with precedence: ENV > File > Defaults.
	cfg, err := config.NewLoader(*configPath, version).Load()
	if err != nil {
		xglog.Configure(xglog.Config{Level: "info", Version: version})
		logger := xglog.WithComponent("main")
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Version: cfg.Version,
	})
	logger := xglog.WithComponent("main")

	if *configPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", *configPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	tracer, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    "api-gateway",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		ExporterType:   cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SamplingRate:   cfg.TracingSampleRate,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "telemetry.init_failed").
			Msg("failed to initialise tracing")
	}

	registry, err := config.NewRegistry(cfg)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "registry.build_failed").
			Msg("failed to build service registry")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Str("environment", cfg.Environment).
		Int("services", registry.Len()).
		Msg("starting api-gateway")
	for _, svc := range registry.Services() {
		logger.Info().Msgf("→ %s: %s (timeout %s)", svc.Name, svc.BaseURL, svc.Timeout)
	}

	gw := proxy.New(registry, proxy.Options{
		Logger:         xglog.WithComponent("proxy"),
		TracingEnabled: cfg.TracingEnabled,
	})
	server := api.New(cfg, registry, gw)

	deps := daemon.Deps{
		Logger:     xglog.Base(),
		APIHandler: server.Handler(),
	}
	if cfg.MetricsEnabled && cfg.MetricsAddr != "" {
		deps.MetricsAddr = cfg.MetricsAddr
		deps.MetricsHandler = promhttp.Handler()
	}

	mgr, err := daemon.NewManager(cfg, deps)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.init_failed").
			Msg("failed to create daemon manager")
	}
	mgr.RegisterShutdownHook("telemetry_shutdown", tracer.Shutdown)

	if err := mgr.Start(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("gateway exited with error")
	}
	logger.Info().Msg("gateway stopped")
}
