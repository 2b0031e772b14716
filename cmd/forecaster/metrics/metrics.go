// Package metrics provides Prometheus metrics instrumentation for the
// forecaster.
//
// It exposes operational metrics about the forecast pipeline, instrumented
// per stage of the state machine (collect, train, evaluate, predict,
// total), plus registry champion/challenger tallies and error counts. All
// metrics are exposed via the /metrics HTTP endpoint for Prometheus
// scraping.
//
// Metrics exposed:
//   - forecaster_stage_seconds: Histogram of pipeline-stage duration, by stage
//   - forecaster_run_wmape: Gauge of the most recent run's overall WMAPE
//   - forecaster_registry_ml_wins / forecaster_registry_baseline_wins: Gauges
//     of the most recent run's champion/challenger tallies
//   - forecaster_errors_total: Counter of errors by stage and reason
//
// All metrics carry a location_id label for multi-location deployments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the forecaster and implements
// engine.Recorder, so an Engine can be instrumented without importing
// Prometheus itself.
type Metrics struct {
	locationID string

	stageSeconds    *prometheus.HistogramVec
	runWMAPE        prometheus.Gauge
	registryMLWins  prometheus.Gauge
	registryBase    prometheus.Gauge
	registryBuckets prometheus.Gauge
	errorsTotal     *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics for one location.
func New(locationID string) *Metrics {
	labels := prometheus.Labels{"location_id": locationID}

	return &Metrics{
		locationID: locationID,

		stageSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "forecaster_stage_seconds",
			Help:        "Time spent in each forecast pipeline stage",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"stage"}),

		runWMAPE: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "forecaster_run_wmape",
			Help:        "Overall weighted MAPE of the most recent run's champion predictions",
			ConstLabels: labels,
		}),

		registryMLWins: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "forecaster_registry_ml_wins",
			Help:        "Number of (day_of_week, hour_of_day) buckets where the ML model is champion",
			ConstLabels: labels,
		}),

		registryBase: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "forecaster_registry_baseline_wins",
			Help:        "Number of (day_of_week, hour_of_day) buckets where the baseline model is champion",
			ConstLabels: labels,
		}),

		registryBuckets: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "forecaster_registry_total_buckets",
			Help:        "Total number of (day_of_week, hour_of_day) buckets evaluated",
			ConstLabels: labels,
		}),

		errorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "forecaster_errors_total",
			Help:        "Total number of errors by pipeline stage and reason",
			ConstLabels: labels,
		}, []string{"stage", "reason"}),
	}
}

// RecordStage implements engine.Recorder: it observes the duration of one
// pipeline stage ("collect", "train", "evaluate", "predict", "total").
func (m *Metrics) RecordStage(stage string, seconds float64) {
	m.stageSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordError implements engine.Recorder: it increments the error counter
// for one pipeline stage and reason.
func (m *Metrics) RecordError(stage, reason string) {
	m.errorsTotal.WithLabelValues(stage, reason).Inc()
}

// SetRunSummary records the registry tallies and overall WMAPE of a
// completed run, so /metrics reflects the latest champion/challenger split
// without the caller needing a separate set of setter calls per field.
func (m *Metrics) SetRunSummary(wmape float64, mlWins, baselineWins, totalBuckets int) {
	m.runWMAPE.Set(wmape)
	m.registryMLWins.Set(float64(mlWins))
	m.registryBase.Set(float64(baselineWins))
	m.registryBuckets.Set(float64(totalBuckets))
}
