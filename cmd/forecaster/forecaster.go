// Package main implements the forecaster's run-loop orchestration across
// every configured location.
//
// This file contains the LocationRunner type, which owns one
// *engine.Engine (and one Prometheus Metrics/Recorder) per location and
// runs each location's forecast on its own interval, mirroring the
// reference forecast loop: collect → aggregate → featurize → gate → train
// → evaluate → predict → mask → roll up → store, with every location an
// isolated, single-threaded pipeline (spec.md §5) run concurrently on its
// own goroutine.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/brasero/hourly-forecaster/cmd/forecaster/config"
	"github.com/brasero/hourly-forecaster/cmd/forecaster/metrics"
	"github.com/brasero/hourly-forecaster/pkg/engine"
	"github.com/brasero/hourly-forecaster/pkg/forecast"
	"github.com/brasero/hourly-forecaster/pkg/sources"
	"github.com/brasero/hourly-forecaster/pkg/staffing"
	"github.com/brasero/hourly-forecaster/pkg/storage"
)

// locationEngine bundles one location's engine with its own metrics, so
// each location's champion/challenger tallies surface under its own
// location_id label.
type locationEngine struct {
	engine  *engine.Engine
	metrics *metrics.Metrics
}

// LocationRunner dispatches forecast runs across every configured
// location. It satisfies router.Runner, so the same instance backs both
// the scheduled loop and the on-demand HTTP endpoint.
type LocationRunner struct {
	cfg       *config.Config
	openHours forecast.OpenHoursSpec
	policy    staffing.Policy
	logger    *slog.Logger

	mu         sync.RWMutex
	byLocation map[string]*locationEngine
}

// NewLocationRunner builds one engine per cfg.Locations, all sharing the
// given source and store.
func NewLocationRunner(cfg *config.Config, source sources.Source, store storage.Store, logger *slog.Logger) (*LocationRunner, error) {
	openHours, err := forecast.ParseOpenHoursSpec(cfg.OpenTime, cfg.CloseTime, cfg.PrepStart, cfg.PrepEnd, cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("forecaster: parse open hours: %w", err)
	}

	policy := staffing.Policy{
		LabourCostPercentage: cfg.LabourCostPercentage,
		HourlyWage:           cfg.HourlyWage,
		MinHours:             cfg.MinLabourHours,
		MaxHours:             cfg.MaxLabourHours,
	}

	lr := &LocationRunner{
		cfg:        cfg,
		openHours:  openHours,
		policy:     policy,
		logger:     logger,
		byLocation: make(map[string]*locationEngine, len(cfg.Locations)),
	}

	for _, locationID := range cfg.Locations {
		m := metrics.New(locationID)
		lr.byLocation[locationID] = &locationEngine{
			engine:  engine.New(source, store, logger.With("location_id", locationID), m),
			metrics: m,
		}
	}

	return lr, nil
}

// Run executes one forecast cycle for req.LocationID, filling in
// location-level defaults (open hours, labour policy) the caller omitted.
// Satisfies router.Runner.
func (lr *LocationRunner) Run(ctx context.Context, req engine.Request) (engine.Result, error) {
	lr.mu.RLock()
	le, ok := lr.byLocation[req.LocationID]
	lr.mu.RUnlock()
	if !ok {
		return engine.Result{}, fmt.Errorf("forecaster: unknown location_id %q", req.LocationID)
	}

	if req.HorizonDays <= 0 {
		req.HorizonDays = lr.cfg.HorizonDays
	}
	if req.OpenHours == (forecast.OpenHoursSpec{}) {
		req.OpenHours = lr.openHours
	}
	if req.AverageTicketValue <= 0 {
		req.AverageTicketValue = lr.cfg.AverageTicketValue
	}
	if req.LabourPolicy == (staffing.Policy{}) {
		req.LabourPolicy = lr.policy
	}
	if req.ConformalCoverageLevel <= 0 {
		req.ConformalCoverageLevel = lr.cfg.ConformalCoverageLevel
	}

	result, err := le.engine.Run(ctx, req)
	if err == nil && result.Success {
		le.metrics.SetRunSummary(result.Metrics.WMAPE, result.Registry.MLWins, result.Registry.BaselineWins, result.Registry.TotalBuckets)
	}
	return result, err
}

// RunLoop runs every configured location's forecast once immediately, then
// again every interval, until ctx is cancelled. Locations run concurrently
// on independent goroutines (spec.md §5): one location's failure never
// blocks another's tick.
func (lr *LocationRunner) RunLoop(ctx context.Context, interval time.Duration) {
	var wg sync.WaitGroup
	lr.mu.RLock()
	locationIDs := make([]string, 0, len(lr.byLocation))
	for locationID := range lr.byLocation {
		locationIDs = append(locationIDs, locationID)
	}
	lr.mu.RUnlock()

	wg.Add(len(locationIDs))
	for _, locationID := range locationIDs {
		go func(locationID string) {
			defer wg.Done()
			lr.runLocationLoop(ctx, locationID, interval)
		}(locationID)
	}
	wg.Wait()
}

func (lr *LocationRunner) runLocationLoop(ctx context.Context, locationID string, interval time.Duration) {
	log := lr.logger.With("location_id", locationID)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := func() {
		if _, err := lr.Run(ctx, engine.Request{LocationID: locationID}); err != nil {
			log.Error("forecast run failed", "error", err)
		}
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			log.Info("forecast loop stopped")
			return
		case <-ticker.C:
			tick()
		}
	}
}
