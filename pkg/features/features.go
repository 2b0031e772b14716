// Package features turns an aggregator.HourlyCell grid into FeatureRow
// vectors: lag features, rolling statistics, and calendar signals, in the
// fixed column order the models package expects.
package features

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/brasero/hourly-forecaster/pkg/aggregator"
)

// Columns is the fixed feature-vector order used for both training and
// inference. Changing this order changes model semantics, not just labels.
var Columns = []string{
	"hour_of_day", "day_of_week", "is_weekend", "month", "week_of_year",
	"day_of_month", "is_holiday", "is_payday",
	"lag_1", "lag_24", "lag_168", "lag_336",
	"rolling_mean_7d", "rolling_std_7d",
}

// FeatureRow is one hourly observation plus its derived features. A row
// with HasLag1/HasLag24 false does not carry enough history to train or
// predict from and is typically skipped by the model layer.
type FeatureRow struct {
	SaleDate  time.Time
	HourOfDay int
	DayOfWeek int
	NetSales  float64 // the target, sales_net for this cell

	IsWeekend  bool
	Month      int
	WeekOfYear int
	DayOfMonth int
	IsHoliday  bool
	IsPayday   bool

	Lag1, Lag24, Lag168, Lag336       float64
	HasLag1, HasLag24, HasLag168, HasLag336 bool

	RollingMean7d, RollingStd7d float64
}

// Vector returns the row's features in Columns order, for feeding a model.
// Missing lags (not enough history yet) are encoded as NaN, exactly as the
// reference implementation leaves them as pandas NaN before the dropna
// step — callers that need a lag value to make a decision must check
// math.IsNaN rather than treat 0 as "absent".
func (r FeatureRow) Vector() []float64 {
	return []float64{
		float64(r.HourOfDay), float64(r.DayOfWeek), boolToFloat(r.IsWeekend),
		float64(r.Month), float64(r.WeekOfYear), float64(r.DayOfMonth),
		boolToFloat(r.IsHoliday), boolToFloat(r.IsPayday),
		orNaN(r.Lag1, r.HasLag1), orNaN(r.Lag24, r.HasLag24),
		orNaN(r.Lag168, r.HasLag168), orNaN(r.Lag336, r.HasLag336),
		r.RollingMean7d, r.RollingStd7d,
	}
}

func orNaN(v float64, has bool) float64 {
	if !has {
		return math.NaN()
	}
	return v
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// HolidaySet is a pluggable calendar of "YYYY-MM-DD" dates, so a
// multi-location chain is not locked to a single country's calendar.
// DefaultHolidays carries the fixed Spain calendar the original engine
// shipped with, kept as the default for locations that don't override it.
type HolidaySet map[string]struct{}

// DefaultHolidays is the fixed national-holiday calendar used when a
// location does not supply its own HolidaySet.
var DefaultHolidays = HolidaySet{
	"2024-01-01": {}, "2024-01-06": {}, "2024-03-29": {}, "2024-05-01": {},
	"2024-08-15": {}, "2024-10-12": {}, "2024-11-01": {}, "2024-12-06": {},
	"2024-12-08": {}, "2024-12-25": {},
	"2025-01-01": {}, "2025-01-06": {}, "2025-04-18": {}, "2025-05-01": {},
	"2025-08-15": {}, "2025-10-12": {}, "2025-11-01": {}, "2025-12-06": {},
	"2025-12-08": {}, "2025-12-25": {},
	"2026-01-01": {}, "2026-01-06": {}, "2026-04-03": {}, "2026-05-01": {},
	"2026-08-15": {}, "2026-10-12": {}, "2026-11-01": {}, "2026-12-06": {},
	"2026-12-08": {}, "2026-12-25": {},
}

func (h HolidaySet) contains(d time.Time) bool {
	_, ok := h[d.Format("2006-01-02")]
	return ok
}

// Contains reports whether d falls in the holiday set, for callers outside
// this package that need the same calendar check the feature builder uses
// (the predictor's recursive future-date loop).
func (h HolidaySet) Contains(d time.Time) bool {
	return h.contains(d)
}

// Build derives a FeatureRow per HourlyCell. grid must already be the dense,
// chronologically-sorted output of aggregator.Aggregate — lag and rolling
// windows are computed by row position, matching the original's shift()
// semantics over an evenly-spaced 24-row-per-day grid.
func Build(grid []aggregator.HourlyCell, holidays HolidaySet) []FeatureRow {
	if holidays == nil {
		holidays = DefaultHolidays
	}

	rows := make([]FeatureRow, len(grid))
	for i, cell := range grid {
		row := FeatureRow{
			SaleDate:   cell.SaleDate,
			HourOfDay:  cell.HourOfDay,
			DayOfWeek:  cell.DayOfWeek,
			NetSales:   cell.NetSales,
			IsWeekend:  cell.DayOfWeek >= 5,
			Month:      int(cell.SaleDate.Month()),
			DayOfMonth: cell.SaleDate.Day(),
			IsHoliday:  holidays.contains(cell.SaleDate),
		}
		_, row.WeekOfYear = cell.SaleDate.ISOWeek()
		row.IsPayday = row.DayOfMonth == 1 || row.DayOfMonth == 15 || row.DayOfMonth >= 25

		if i-1 >= 0 {
			row.Lag1, row.HasLag1 = grid[i-1].NetSales, true
		}
		if i-24 >= 0 {
			row.Lag24, row.HasLag24 = grid[i-24].NetSales, true
		}
		if i-168 >= 0 {
			row.Lag168, row.HasLag168 = grid[i-168].NetSales, true
		}
		if i-336 >= 0 {
			row.Lag336, row.HasLag336 = grid[i-336].NetSales, true
		}

		rows[i] = row
	}

	applyRollingStats(rows, grid)

	return rows
}

// applyRollingStats computes, for each hour-of-day independently, the mean
// and stddev of sales over the trailing 7 occurrences of that hour
// (min_periods=1: fewer than 7 prior occurrences still produce a value).
func applyRollingStats(rows []FeatureRow, grid []aggregator.HourlyCell) {
	byHour := make(map[int][]int) // hour -> row indices, in chronological order
	for i, cell := range grid {
		byHour[cell.HourOfDay] = append(byHour[cell.HourOfDay], i)
	}

	const window = 7
	for _, indices := range byHour {
		var trailing []float64
		for _, idx := range indices {
			trailing = append(trailing, rows[idx].NetSales)
			if len(trailing) > window {
				trailing = trailing[1:]
			}

			if len(trailing) == 1 {
				rows[idx].RollingMean7d = trailing[0]
				rows[idx].RollingStd7d = 0
				continue
			}
			mean, std := stat.MeanStdDev(trailing, nil)
			rows[idx].RollingMean7d = mean
			rows[idx].RollingStd7d = std
		}
	}
}
