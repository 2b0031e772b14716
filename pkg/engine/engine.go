// Package engine orchestrates one location's forecast run end to end:
//
//	collect → aggregate → buildFeatures → gate → train → evaluate → predict → mask → rollUp → store
//
// This is the state machine spec.md §4.9 describes: START → AGGREGATED →
// FEATURIZED → GATED → TRAINED → EVALUATED → PREDICTED → MASKED →
// ROLLED_UP → EMITTED, with GATED → ABORTED the only terminal failure
// (fewer than 7 distinct days of history). Every other failure degrades to
// a simpler path rather than aborting — most notably, an ML training
// failure leaves every bucket on the baseline model instead of failing the
// run.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brasero/hourly-forecaster/pkg/aggregator"
	"github.com/brasero/hourly-forecaster/pkg/evaluator"
	"github.com/brasero/hourly-forecaster/pkg/features"
	"github.com/brasero/hourly-forecaster/pkg/forecast"
	"github.com/brasero/hourly-forecaster/pkg/gating"
	"github.com/brasero/hourly-forecaster/pkg/models"
	"github.com/brasero/hourly-forecaster/pkg/predictor"
	"github.com/brasero/hourly-forecaster/pkg/registry"
	"github.com/brasero/hourly-forecaster/pkg/rollup"
	"github.com/brasero/hourly-forecaster/pkg/sources"
	"github.com/brasero/hourly-forecaster/pkg/staffing"
	"github.com/brasero/hourly-forecaster/pkg/storage"
)

// minTotalDaysForRun is the hard floor below which a run aborts instead of
// degrading: with fewer than a week of history even the seasonal-naive
// baseline has no lag_168 to fall back on for most buckets.
const minTotalDaysForRun = 7

// defaultHorizonDays matches spec.md §6's invocation-request default.
const defaultHorizonDays = 14

// Recorder receives pipeline-stage timings and error counts. Implementations
// typically wrap Prometheus histograms/counters; a nil Recorder is valid and
// silently discards everything.
type Recorder interface {
	RecordStage(stage string, seconds float64)
	RecordError(stage, reason string)
}

// Request is the transport-agnostic invocation request from spec.md §6.
type Request struct {
	LocationID         string
	LocationName       string
	HorizonDays        int
	StartDate          time.Time // first future calendar date; defaults to the day after the last historical date
	OpenHours          forecast.OpenHoursSpec
	Holidays           features.HolidaySet
	AverageTicketValue float64
	LabourPolicy       staffing.Policy

	// ConformalCoverageLevel is the holdout residual quantile used to size
	// prediction intervals (e.g. 0.95 for a p95 interval). Zero defaults
	// to evaluator.DefaultConformalCoverage.
	ConformalCoverageLevel float64
}

// Result is the structured run summary spec.md §6 requires: success,
// gating verdict, overall metrics, registry tallies, and a small sample of
// the stored rows for smoke tests.
type Result struct {
	Success  bool
	Reason   string
	Gating   gating.Verdict
	Metrics  evaluator.Metrics
	Registry registry.Summary

	SampleHourly []forecast.HourlyForecast
	SampleDaily  []forecast.DailyForecast
}

const sampleRowLimit = 24

// Engine wires together a data source and a result store and runs the
// pipeline for one location at a time. A single Engine may run multiple
// locations concurrently — each Run call owns its own in-memory state —
// but concurrent Run calls for the *same* location must be serialized by
// the caller (spec.md §5).
type Engine struct {
	Source   sources.Source
	Store    storage.Store
	Logger   *slog.Logger
	Recorder Recorder
}

// New creates an Engine. logger defaults to slog.Default() if nil;
// recorder may be nil to disable instrumentation.
func New(source sources.Source, store storage.Store, logger *slog.Logger, recorder Recorder) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Source: source, Store: store, Logger: logger, Recorder: recorder}
}

// Run executes one complete forecast cycle for req.LocationID.
func (e *Engine) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	horizonDays := req.HorizonDays
	if horizonDays <= 0 {
		horizonDays = defaultHorizonDays
	}
	openHours := req.OpenHours
	if openHours == (forecast.OpenHoursSpec{}) {
		openHours = forecast.DefaultOpenHours()
	}
	holidays := req.Holidays
	if holidays == nil {
		holidays = features.DefaultHolidays
	}
	labourPolicy := req.LabourPolicy
	if labourPolicy == (staffing.Policy{}) {
		labourPolicy = staffing.DefaultPolicy()
	}

	log := e.Logger.With("location_id", req.LocationID)

	raw, collectSeconds, err := e.collect(ctx, req.LocationID)
	if err != nil {
		e.recordError("collect", "source_failed")
		return Result{}, fmt.Errorf("engine: collect: %w", err)
	}
	log.Info("collected raw buckets", "rows", len(raw), "duration_ms", ms(collectSeconds))

	grid := aggregator.Aggregate(raw)
	totalDays := aggregator.TotalDays(grid)
	log.Debug("aggregated hourly grid", "cells", len(grid), "total_days", totalDays)

	if totalDays < minTotalDaysForRun {
		reason := fmt.Sprintf("insufficient history: %d distinct days, need at least %d", totalDays, minTotalDaysForRun)
		log.Warn("run aborted", "reason", reason)
		return Result{Success: false, Reason: reason}, nil
	}

	rows := features.Build(grid, holidays)
	verdict := gating.Evaluate(grid)
	log.Info("gating verdict", "sufficiency", verdict.Sufficiency, "blend_ratio", verdict.BlendRatio, "algorithm_label", verdict.AlgorithmLabel)

	train, holdout := evaluator.HoldoutSplit(rows)

	baseline := models.NewBaseline()
	if err := baseline.Train(ctx, train); err != nil {
		log.Warn("baseline training failed", "error", err)
	}

	var mlModel models.Model
	if verdict.TrainModelAllowed {
		gbrt := models.NewGBRT()
		trainStart := time.Now()
		if err := gbrt.Train(ctx, train); err != nil {
			log.Warn("ml model training failed, falling back to baseline for every bucket", "error", err)
			e.recordError("train", "gbrt_failed")
		} else {
			mlModel = gbrt
		}
		e.recordStage("train", time.Since(trainStart).Seconds())
	} else {
		log.Debug("ml training skipped: not enough history yet", "total_days", totalDays)
	}

	mlPredict := func(r features.FeatureRow) (float64, bool) {
		if mlModel == nil || !r.HasLag1 || !r.HasLag24 {
			return 0, false
		}
		v, err := mlModel.Predict(r.Vector())
		if err != nil {
			return 0, false
		}
		return v, true
	}
	baselinePredict := func(r features.FeatureRow) (float64, bool) {
		v, err := baseline.Predict(r.Vector())
		if err != nil {
			return 0, false
		}
		return v, true
	}

	coverageLevel := req.ConformalCoverageLevel
	if coverageLevel <= 0 {
		coverageLevel = evaluator.DefaultConformalCoverage
	}

	evalStart := time.Now()
	decisions := evaluator.EvaluatePerBucket(holdout, mlPredict, baselinePredict, verdict)
	conformal := evaluator.ConformalResiduals(holdout, mlPredict, coverageLevel)
	for key, residual := range conformal {
		d := decisions[key]
		d.ConformalResidual = residual
		decisions[key] = d
	}
	table := registry.NewTable(req.LocationID, decisions)
	summary := table.Summarize()
	overallMetrics := overallHoldoutMetrics(holdout, table, mlPredict, baselinePredict, conformal)
	e.recordStage("evaluate", time.Since(evalStart).Seconds())
	log.Info("evaluated buckets", "ml_wins", summary.MLWins, "baseline_wins", summary.BaselineWins, "wmape", overallMetrics.WMAPE)

	startDate := req.StartDate
	if startDate.IsZero() {
		startDate = grid[len(grid)-1].SaleDate.AddDate(0, 0, 1)
	}

	predictStart := time.Now()
	hourly := predictor.Predict(predictor.Inputs{
		History:            grid,
		Table:              table,
		MLModel:            mlModel,
		BaselineModel:      baseline,
		Conformal:          conformal,
		Verdict:            verdict,
		Holidays:           holidays,
		StartDate:          startDate,
		HorizonDays:        horizonDays,
		AverageTicketValue: req.AverageTicketValue,
	})
	e.recordStage("predict", time.Since(predictStart).Seconds())

	masked := predictor.Mask(hourly, openHours)
	daily := rollup.RollUp(masked, labourPolicy)
	log.Debug("rolled up daily forecasts", "hourly_rows", len(masked), "daily_rows", len(daily))

	generatedAt := time.Now()
	run := storage.LocationRun{
		LocationID:  req.LocationID,
		Hourly:      masked,
		Daily:       daily,
		Registry:    table.Rows(generatedAt),
		GeneratedAt: generatedAt,
		Audit: storage.RunAudit{
			LocationID:          req.LocationID,
			AlgorithmLabel:      verdict.AlgorithmLabel,
			Sufficiency:         string(verdict.Sufficiency),
			BlendRatio:          verdict.BlendRatio,
			WMAPE:               overallMetrics.WMAPE,
			MASE:                overallMetrics.MASE,
			Bias:                overallMetrics.Bias,
			DirectionalAccuracy: overallMetrics.DirectionalAccuracy,
			Calibration:         overallMetrics.Calibration,
			ConformalCoverage:   staffing.FormatQuantileLevel(coverageLevel),
			HistoryStart:        grid[0].SaleDate,
			HistoryEnd:          grid[len(grid)-1].SaleDate,
			HorizonDays:         horizonDays,
			DataPoints:          len(rows),
			LGBMUsed:            mlModel != nil,
			GeneratedAt:         generatedAt,
		},
	}

	if err := e.Store.Put(ctx, run); err != nil {
		e.recordError("store", "put_failed")
		return Result{}, fmt.Errorf("engine: store: %w", err)
	}

	totalSeconds := time.Since(start).Seconds()
	e.recordStage("total", totalSeconds)
	log.Info("run complete", "total_ms", ms(totalSeconds))

	return Result{
		Success:      true,
		Gating:       verdict,
		Metrics:      overallMetrics,
		Registry:     summary,
		SampleHourly: sampleOf(masked, sampleRowLimit),
		SampleDaily:  sampleOf(daily, sampleRowLimit),
	}, nil
}

func (e *Engine) collect(ctx context.Context, locationID string) ([]sources.RawBucket, float64, error) {
	start := time.Now()
	raw, err := e.Source.Collect(ctx, locationID)
	duration := time.Since(start)
	e.recordStage("collect", duration.Seconds())
	if err != nil {
		return nil, duration.Seconds(), err
	}
	return raw, duration.Seconds(), nil
}

func (e *Engine) recordStage(stage string, seconds float64) {
	if e.Recorder != nil {
		e.Recorder.RecordStage(stage, seconds)
	}
}

func (e *Engine) recordError(stage, reason string) {
	if e.Recorder != nil {
		e.Recorder.RecordError(stage, reason)
	}
}

// overallHoldoutMetrics scores the champion-of-record (per each row's own
// bucket) across the full holdout set, giving the single wmape/mase/bias/
// directional_accuracy/calibration figure spec.md §6's exit summary asks
// for — as opposed to evaluator.EvaluatePerBucket's 168 per-bucket
// breakdowns. conformal supplies each bucket's prediction-interval
// half-width for the calibration check.
func overallHoldoutMetrics(
	holdout []features.FeatureRow,
	table registry.Table,
	mlPredict, baselinePredict func(features.FeatureRow) (float64, bool),
	conformal map[[2]int]float64,
) evaluator.Metrics {
	if len(holdout) == 0 {
		return evaluator.Metrics{}
	}

	actual := make([]float64, len(holdout))
	predicted := make([]float64, len(holdout))
	seasonalRef := make([]float64, len(holdout))
	lower := make([]float64, len(holdout))
	upper := make([]float64, len(holdout))

	for i, r := range holdout {
		actual[i] = r.NetSales
		if r.HasLag168 {
			seasonalRef[i] = r.Lag168
		}

		champion := table.Champion(r.DayOfWeek, r.HourOfDay)
		pred, ok := 0.0, false
		if champion == "lgbm" {
			pred, ok = mlPredict(r)
		}
		if champion != "lgbm" || !ok {
			pred, _ = baselinePredict(r)
		}
		predicted[i] = pred

		residual := conformal[[2]int{r.DayOfWeek, r.HourOfDay}]
		lower[i] = pred - residual
		if lower[i] < 0 {
			lower[i] = 0
		}
		upper[i] = pred + residual
	}

	return evaluator.Metrics{
		WMAPE:               evaluator.WMAPE(actual, predicted),
		MASE:                evaluator.MASE(actual, predicted, seasonalRef),
		Bias:                evaluator.Bias(actual, predicted),
		DirectionalAccuracy: evaluator.DirectionalAccuracy(actual, predicted),
		Calibration:         evaluator.Calibration(actual, lower, upper),
	}
}

func sampleOf[T any](rows []T, limit int) []T {
	if len(rows) <= limit {
		return rows
	}
	return rows[:limit]
}

func ms(seconds float64) int64 {
	return time.Duration(seconds * float64(time.Second)).Milliseconds()
}
