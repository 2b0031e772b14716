// Command forecaster runs the hourly sales forecasting engine for one or
// more restaurant locations.
//
// For each configured location the forecaster runs a continuous forecast
// loop that:
//  1. Collects point-of-sale history from the configured data source
//  2. Aggregates it into an hourly grid and builds model features
//  3. Gates model ambition on data sufficiency, trains baseline/ML models,
//     and selects a champion per (day_of_week, hour_of_day) bucket
//  4. Predicts a recursive hourly forecast and rolls it up to daily labour
//     plans
//  5. Stores the forecast, registry, and audit rows for the location
//
// The forecaster serves an HTTP API (port 8081 by default) providing:
//   - POST /runs/{location_id} - Trigger (or retrigger) a forecast run
//   - GET  /healthz            - Health check endpoint
//   - GET  /metrics            - Prometheus metrics endpoint
//
// Usage:
//
//	forecaster \
//	  -locations=gran-via,plaza-mayor \
//	  -horizon-days=14 \
//	  -source=demo \
//	  -storage=memory
//
// Environment variables:
//
//	LOCATIONS    - Comma-separated location ids (required)
//	HORIZON_DAYS - Forecast horizon in days (default: 14)
//	SOURCE       - Data source kind: demo or pos (default: demo)
//	STORAGE      - Storage backend: memory or redis (default: memory)
//	INTERVAL     - Forecast loop interval per location (default: 1h)
//	LOG_LEVEL    - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT   - Logging format: text, json (default: text)
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brasero/hourly-forecaster/cmd/forecaster/config"
	"github.com/brasero/hourly-forecaster/cmd/forecaster/logger"
	"github.com/brasero/hourly-forecaster/cmd/forecaster/router"
	"github.com/brasero/hourly-forecaster/cmd/forecaster/store"
	"github.com/brasero/hourly-forecaster/pkg/httpx"
	"github.com/brasero/hourly-forecaster/pkg/sources"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	log := logger.New(cfg)
	slog.SetDefault(log)

	log.Info("starting hourly sales forecaster",
		"version", version,
		"locations", cfg.Locations,
		"source", cfg.SourceKind,
		"storage", cfg.Storage,
	)

	source, err := sources.New(cfg.SourceKind, map[string]string{
		"url":             cfg.SourceURL,
		"method":          cfg.SourceMethod,
		"body":            cfg.SourceBody,
		"timestampPath":   cfg.TimestampPath,
		"netSalesPath":    cfg.NetSalesPath,
		"ticketsPath":     cfg.TicketsPath,
		"timestampFormat": "rfc3339",
	})
	if err != nil {
		log.Error("failed to build data source", "error", err)
		os.Exit(1)
	}

	resultStore, err := store.New(cfg, log)
	if err != nil {
		log.Error("failed to build storage backend", "error", err)
		os.Exit(1)
	}
	if closer, ok := resultStore.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Error("failed to close store", "error", err)
			}
		}()
	}

	runner, err := NewLocationRunner(cfg, source, resultStore, log)
	if err != nil {
		log.Error("failed to build location runner", "error", err)
		os.Exit(1)
	}

	mux := router.SetupRoutes(runner, log)
	httpServer := httpx.NewServer(cfg.Listen, mux, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runner.RunLoop(ctx, cfg.Interval)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			log.Error("server failed", "error", err)
		}
	}

	log.Info("shutting down")
	cancel()

	if err := httpServer.Stop(10 * time.Second); err != nil {
		log.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("shutdown complete")
}
