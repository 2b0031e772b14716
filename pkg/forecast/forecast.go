// Package forecast defines the output row shapes a location run produces —
// per-hour and per-day forecasts, and the open-hours window that masks
// them — shared between the predictor, roll-up, and storage layers.
package forecast

import (
	"fmt"
	"time"
)

// HourlyForecast is one (date, hour) prediction row.
type HourlyForecast struct {
	ForecastDate       time.Time
	HourOfDay          int
	ForecastSales      float64
	ForecastSalesLower float64
	ForecastSalesUpper float64
	ForecastOrders     float64
	ModelUsed          string
	BucketWMAPE        float64
	BucketMASE         float64
}

// DailyForecast is the sum of a date's 24 HourlyForecast rows plus a
// derived labour plan.
type DailyForecast struct {
	Date               time.Time
	ForecastSales      float64
	ForecastSalesLower float64
	ForecastSalesUpper float64
	ForecastOrders     float64
	PlannedLabourHours float64
	PlannedLabourCost  float64
}

// OpenHoursSpec is a location's service window. Close may be numerically
// less than or equal to Open to represent a window crossing midnight
// (e.g. open 12:00, close 02:00).
type OpenHoursSpec struct {
	OpenHour      int
	CloseHour     int
	PrepStartHour int
	PrepEndHour   int
	Timezone      string
}

// DefaultOpenHours mirrors the reference engine's default service window:
// 12:00-23:00 Europe/Madrid.
func DefaultOpenHours() OpenHoursSpec {
	return OpenHoursSpec{OpenHour: 12, CloseHour: 23, PrepStartHour: 10, PrepEndHour: 12, Timezone: "Europe/Madrid"}
}

// ParseOpenHoursSpec builds an OpenHoursSpec from HH:MM wall-clock strings
// and an IANA timezone id, validating both against time.LoadLocation and
// time.ParseInLocation before reducing them to integer hours.
func ParseOpenHoursSpec(openTime, closeTime, prepStart, prepEnd, timezone string) (OpenHoursSpec, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return OpenHoursSpec{}, fmt.Errorf("forecast: invalid timezone %q: %w", timezone, err)
	}

	open, err := parseHourInLocation(openTime, loc)
	if err != nil {
		return OpenHoursSpec{}, fmt.Errorf("forecast: invalid open_time %q: %w", openTime, err)
	}
	closeH, err := parseHourInLocation(closeTime, loc)
	if err != nil {
		return OpenHoursSpec{}, fmt.Errorf("forecast: invalid close_time %q: %w", closeTime, err)
	}
	prepS, err := parseHourInLocation(prepStart, loc)
	if err != nil {
		return OpenHoursSpec{}, fmt.Errorf("forecast: invalid prep_start %q: %w", prepStart, err)
	}
	prepE, err := parseHourInLocation(prepEnd, loc)
	if err != nil {
		return OpenHoursSpec{}, fmt.Errorf("forecast: invalid prep_end %q: %w", prepEnd, err)
	}

	return OpenHoursSpec{
		OpenHour:      open,
		CloseHour:     closeH,
		PrepStartHour: prepS,
		PrepEndHour:   prepE,
		Timezone:      timezone,
	}, nil
}

func parseHourInLocation(hhmm string, loc *time.Location) (int, error) {
	t, err := time.ParseInLocation("15:04", hhmm, loc)
	if err != nil {
		return 0, err
	}
	return t.Hour(), nil
}

// IsServiceHour reports whether hour falls inside [OpenHour, CloseHour),
// supporting a window that crosses midnight.
func (s OpenHoursSpec) IsServiceHour(hour int) bool {
	if s.OpenHour == s.CloseHour {
		return true // open/close equal means "always open"
	}
	if s.OpenHour < s.CloseHour {
		return hour >= s.OpenHour && hour < s.CloseHour
	}
	return hour >= s.OpenHour || hour < s.CloseHour
}
