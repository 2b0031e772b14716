// Package models provides the two forecasting models the engine trains and
// evaluates per location: Baseline (seasonal naive with fallbacks) and GBRT
// (a fixed-hyperparameter gradient-boosted regression tree ensemble).
//
// Both satisfy the Model interface so the evaluator and predictor can treat
// them uniformly; only the engine knows their fixed, non-ensembled identity.
package models

import (
	"context"

	"github.com/brasero/hourly-forecaster/pkg/features"
)

// Model is a trainable, single-row predictor over a features.FeatureRow
// vector. Prediction is per-row (not batched) because the predictor feeds
// rows recursively, one forecast hour at a time.
type Model interface {
	// Name returns a short, stable identifier ("seasonal_naive" or "lgbm").
	Name() string

	// Train fits the model on historical rows. GBRT skips rows without a
	// full lag_1/lag_24 window; Baseline uses every row for its hourly
	// means.
	Train(ctx context.Context, rows []features.FeatureRow) error

	// Predict returns a non-negative forecast for a single feature vector,
	// in features.Columns order.
	Predict(vector []float64) (float64, error)
}
