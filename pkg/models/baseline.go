package models

import (
	"context"
	"fmt"
	"math"

	"github.com/brasero/hourly-forecaster/pkg/features"
)

// colIndex mirrors features.Columns, so Predict can read a raw vector
// without depending on the features package's struct layout.
const (
	colHourOfDay = iota
	colDayOfWeek
	colIsWeekend
	colMonth
	colWeekOfYear
	colDayOfMonth
	colIsHoliday
	colIsPayday
	colLag1
	colLag24
	colLag168
	colLag336
	colRollingMean7d
	colRollingStd7d
)

// Baseline is the seasonal-naive model: same day-of-week and hour one week
// ago (lag_168), falling back to yesterday's same hour (lag_24), falling
// back to the historical mean for that hour-of-day.
type Baseline struct {
	hourlyMeans map[int]float64
}

// NewBaseline creates an untrained Baseline model.
func NewBaseline() *Baseline {
	return &Baseline{hourlyMeans: make(map[int]float64)}
}

func (b *Baseline) Name() string { return "seasonal_naive" }

// Train computes the per-hour-of-day historical mean used as the last
// fallback when neither lag_168 nor lag_24 is available.
func (b *Baseline) Train(ctx context.Context, rows []features.FeatureRow) error {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, r := range rows {
		sums[r.HourOfDay] += r.NetSales
		counts[r.HourOfDay]++
	}
	b.hourlyMeans = make(map[int]float64, len(sums))
	for hour, sum := range sums {
		if counts[hour] > 0 {
			b.hourlyMeans[hour] = sum / float64(counts[hour])
		}
	}
	return nil
}

// Predict applies lag_168 -> lag_24 -> hourly mean, in that order, clamped
// to non-negative.
func (b *Baseline) Predict(vector []float64) (float64, error) {
	if len(vector) <= colLag336 {
		return 0, fmt.Errorf("baseline: vector too short: %d", len(vector))
	}

	lag168 := vector[colLag168]
	if !math.IsNaN(lag168) {
		return nonNegative(lag168), nil
	}
	lag24 := vector[colLag24]
	if !math.IsNaN(lag24) {
		return nonNegative(lag24), nil
	}

	hour := int(vector[colHourOfDay])
	if mean, ok := b.hourlyMeans[hour]; ok {
		return nonNegative(mean), nil
	}
	return 0, nil
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
