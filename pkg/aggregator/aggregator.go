// Package aggregator collapses raw 15-minute point-of-sale buckets into a
// dense hourly grid: one HourlyCell per (date, hour) in [minDate, maxDate],
// with zero-filled gaps so downstream lag indexing never has to reason
// about missing rows.
package aggregator

import (
	"sort"
	"time"

	"github.com/brasero/hourly-forecaster/pkg/sources"
)

// HourlyCell is one hour-of-day observation for a single calendar date.
type HourlyCell struct {
	SaleDate  time.Time // truncated to midnight UTC (time.Truncate on 24h)
	HourOfDay int       // 0-23
	DayOfWeek int       // 0=Monday .. 6=Sunday, i.e. time.Weekday()-1 mod 7; see weekday0Monday
	NetSales  float64
	Tickets   int
}

// weekday0Monday converts a time.Weekday (Sunday=0) to a Monday=0 index,
// matching the distilled source's Python dt.dayofweek convention.
func weekday0Monday(t time.Time) int {
	w := int(t.Weekday())
	return (w + 6) % 7
}

// Weekday0Monday exposes the Monday=0 day-of-week convention used
// throughout this engine, so callers outside this package (the predictor's
// future-date loop) don't have to re-derive it.
func Weekday0Monday(t time.Time) int {
	return weekday0Monday(t)
}

// Aggregate sums raw buckets into hourly cells, then expands the result to
// a dense grid covering every hour of every day between the earliest and
// latest observed date (inclusive), filling missing cells with zero sales.
//
// An empty input returns an empty grid.
func Aggregate(raw []sources.RawBucket) []HourlyCell {
	if len(raw) == 0 {
		return nil
	}

	type key struct {
		date time.Time
		hour int
	}
	sums := make(map[key]*HourlyCell)

	var minDate, maxDate time.Time
	for _, b := range raw {
		date := b.Timestamp.Truncate(24 * time.Hour)
		if minDate.IsZero() || date.Before(minDate) {
			minDate = date
		}
		if maxDate.IsZero() || date.After(maxDate) {
			maxDate = date
		}

		k := key{date: date, hour: b.Timestamp.Hour()}
		cell, ok := sums[k]
		if !ok {
			cell = &HourlyCell{
				SaleDate:  date,
				HourOfDay: b.Timestamp.Hour(),
				DayOfWeek: weekday0Monday(date),
			}
			sums[k] = cell
		}
		cell.NetSales += b.NetSales
		cell.Tickets += b.Tickets
	}

	var grid []HourlyCell
	for d := minDate; !d.After(maxDate); d = d.AddDate(0, 0, 1) {
		dow := weekday0Monday(d)
		for hour := 0; hour < 24; hour++ {
			if cell, ok := sums[key{date: d, hour: hour}]; ok {
				grid = append(grid, *cell)
				continue
			}
			grid = append(grid, HourlyCell{
				SaleDate:  d,
				HourOfDay: hour,
				DayOfWeek: dow,
			})
		}
	}

	sort.Slice(grid, func(i, j int) bool {
		if grid[i].SaleDate.Equal(grid[j].SaleDate) {
			return grid[i].HourOfDay < grid[j].HourOfDay
		}
		return grid[i].SaleDate.Before(grid[j].SaleDate)
	})

	return grid
}

// TotalDays returns the number of distinct calendar dates present in the
// given hourly rows; on the dense grid Aggregate returns, zero-filled gap
// days count too. Used by gating to
// measure how much history is actually available.
func TotalDays(grid []HourlyCell) int {
	seen := make(map[time.Time]struct{})
	for _, c := range grid {
		seen[c.SaleDate] = struct{}{}
	}
	return len(seen)
}
