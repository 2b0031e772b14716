// Package storage holds the four per-location output sinks a run
// produces (hourly forecasts, daily roll-ups, the bucket registry, and a
// single audit row) behind one Store interface, with delete-then-insert
// replacement semantics per location.
package storage

import (
	"context"
	"time"

	"github.com/brasero/hourly-forecaster/pkg/forecast"
	"github.com/brasero/hourly-forecaster/pkg/registry"
)

// RunAudit is the single per-run row written to the audit sink.
type RunAudit struct {
	LocationID          string
	AlgorithmLabel      string
	Sufficiency         string
	BlendRatio          float64
	WMAPE               float64
	MASE                float64
	Bias                float64
	DirectionalAccuracy float64
	Calibration         float64
	ConformalCoverage   string
	HistoryStart        time.Time
	HistoryEnd          time.Time
	HorizonDays         int
	DataPoints          int
	LGBMUsed            bool
	GeneratedAt         time.Time
}

// LocationRun bundles everything one location's run writes downstream. A
// Store replaces a location's entire bundle atomically on Put — the
// engine never writes partial results for a location mid-run.
type LocationRun struct {
	LocationID  string
	Hourly      []forecast.HourlyForecast
	Daily       []forecast.DailyForecast
	Registry    []registry.Row
	Audit       RunAudit
	GeneratedAt time.Time
}

// Store is the persistence boundary for the four output sinks. Put
// deletes any existing rows for LocationID across all four sinks before
// inserting the new bundle (delete-then-insert, per spec.md §5/§6).
type Store interface {
	Put(ctx context.Context, run LocationRun) error
	GetLatest(ctx context.Context, locationID string) (LocationRun, bool, error)
}
