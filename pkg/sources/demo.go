package sources

import (
	"context"
	"math"
	"time"
)

// DemoSource generates a synthetic but internally-consistent history of
// 15-minute buckets, useful for local runs, smoke tests, and onboarding a
// location before a real point-of-sale feed is wired up.
//
// It layers a weekly seasonal pattern (higher sales Fri/Sat, quiet Mon/Tue)
// on top of a daily open-hours curve (lunch and dinner peaks), plus a small
// deterministic noise term so repeated runs over the same window are
// reproducible.
type DemoSource struct {
	// Days is how many trailing days of history to generate. Defaults to 90.
	Days int

	// OpenHour/CloseHour bound the service window (local hours, [Open,Close)).
	// Outside this window, generated sales are always zero. Defaults to 11/23.
	OpenHour, CloseHour int

	// BaseNetSalesPerBucket scales the overall magnitude of generated sales.
	// Defaults to 40.
	BaseNetSalesPerBucket float64

	// Now overrides the generation anchor, for deterministic tests. Defaults
	// to time.Now().
	Now time.Time
}

func (d *DemoSource) Name() string { return "demo" }

// Collect synthesizes Days of 15-minute buckets ending at Now, restricted to
// the [OpenHour,CloseHour) window.
func (d *DemoSource) Collect(ctx context.Context, locationID string) ([]RawBucket, error) {
	days := d.Days
	if days <= 0 {
		days = 90
	}
	openHour := d.OpenHour
	closeHour := d.CloseHour
	if openHour == 0 && closeHour == 0 {
		openHour, closeHour = 11, 23
	}
	base := d.BaseNetSalesPerBucket
	if base <= 0 {
		base = 40
	}

	now := d.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	end := now.Truncate(15 * time.Minute)
	start := end.Add(-time.Duration(days) * 24 * time.Hour)

	var rows []RawBucket
	for ts := start; ts.Before(end); ts = ts.Add(15 * time.Minute) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		hour := ts.Hour()
		if hour < openHour || hour >= closeHour {
			continue
		}

		weekdayFactor := weekdaySeasonality[ts.Weekday()]
		dayCurveFactor := serviceHourCurve(hour, openHour, closeHour)
		noise := 1.0 + 0.08*math.Sin(float64(ts.Unix())/9973.0)

		netSales := base * weekdayFactor * dayCurveFactor * noise
		if netSales < 0 {
			netSales = 0
		}
		tickets := int(netSales / 22.0)

		rows = append(rows, RawBucket{
			LocationID: locationID,
			Timestamp:  ts,
			NetSales:   round2(netSales),
			Tickets:    tickets,
		})
	}

	return rows, nil
}

var weekdaySeasonality = map[time.Weekday]float64{
	time.Monday:    0.75,
	time.Tuesday:   0.80,
	time.Wednesday: 0.90,
	time.Thursday:  1.00,
	time.Friday:    1.35,
	time.Saturday:  1.45,
	time.Sunday:    1.10,
}

// serviceHourCurve models a lunch and dinner bump within the open window.
func serviceHourCurve(hour, open, close int) float64 {
	lunchPeak, dinnerPeak := 14, 21
	distLunch := math.Abs(float64(hour - lunchPeak))
	distDinner := math.Abs(float64(hour - dinnerPeak))
	peak := math.Max(
		math.Exp(-distLunch*distLunch/8),
		1.3*math.Exp(-distDinner*distDinner/6),
	)
	return 0.2 + peak
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
