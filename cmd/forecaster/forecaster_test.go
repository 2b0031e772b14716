package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/brasero/hourly-forecaster/cmd/forecaster/config"
	"github.com/brasero/hourly-forecaster/pkg/engine"
	"github.com/brasero/hourly-forecaster/pkg/sources"
	"github.com/brasero/hourly-forecaster/pkg/storage"
)

func testConfig(locations ...string) *config.Config {
	return &config.Config{
		Locations:              locations,
		HorizonDays:            7,
		AverageTicketValue:     18,
		OpenTime:               "12:00",
		CloseTime:              "23:00",
		PrepStart:              "10:00",
		PrepEnd:                "12:00",
		Timezone:               "Europe/Madrid",
		LabourCostPercentage:   0.28,
		HourlyWage:             14.5,
		MinLabourHours:         20,
		MaxLabourHours:         120,
		ConformalCoverageLevel: 0.95,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewLocationRunnerBuildsOneEnginePerLocation(t *testing.T) {
	cfg := testConfig("loc-1", "loc-2")
	source := &sources.DemoSource{Days: 90, Now: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	store := storage.NewMemoryStore()

	lr, err := NewLocationRunner(cfg, source, store, discardLogger())
	if err != nil {
		t.Fatalf("NewLocationRunner() error = %v", err)
	}
	if len(lr.byLocation) != 2 {
		t.Errorf("expected 2 engines, got %d", len(lr.byLocation))
	}
}

func TestLocationRunnerRunUnknownLocation(t *testing.T) {
	cfg := testConfig("loc-1")
	source := &sources.DemoSource{Days: 90, Now: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	store := storage.NewMemoryStore()

	lr, err := NewLocationRunner(cfg, source, store, discardLogger())
	if err != nil {
		t.Fatalf("NewLocationRunner() error = %v", err)
	}

	if _, err := lr.Run(context.Background(), engine.Request{LocationID: "unknown"}); err == nil {
		t.Fatal("expected an error for an unconfigured location")
	}
}

func TestLocationRunnerRunFillsDefaults(t *testing.T) {
	cfg := testConfig("loc-1")
	source := &sources.DemoSource{Days: 90, Now: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	store := storage.NewMemoryStore()

	lr, err := NewLocationRunner(cfg, source, store, discardLogger())
	if err != nil {
		t.Fatalf("NewLocationRunner() error = %v", err)
	}

	result, err := lr.Run(context.Background(), engine.Request{LocationID: "loc-1"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Run() success = false, reason = %q", result.Reason)
	}

	run, found, err := store.GetLatest(context.Background(), "loc-1")
	if err != nil || !found {
		t.Fatalf("GetLatest() found=%v err=%v", found, err)
	}
	if len(run.Daily) != cfg.HorizonDays {
		t.Errorf("expected %d daily rows from the default horizon, got %d", cfg.HorizonDays, len(run.Daily))
	}
}

func TestLocationRunnerRunLoopStopsOnCancel(t *testing.T) {
	cfg := testConfig("loc-1")
	source := &sources.DemoSource{Days: 90, Now: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	store := storage.NewMemoryStore()

	lr, err := NewLocationRunner(cfg, source, store, discardLogger())
	if err != nil {
		t.Fatalf("NewLocationRunner() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		lr.RunLoop(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunLoop did not stop within timeout after cancellation")
	}
}
