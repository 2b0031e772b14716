// Package rollup sums a location's masked HourlyForecast rows into
// per-date DailyForecast rows and derives the day's labour plan.
package rollup

import (
	"sort"
	"time"

	"github.com/brasero/hourly-forecaster/pkg/forecast"
	"github.com/brasero/hourly-forecaster/pkg/staffing"
)

// RollUp sums forecastSales/forecastSalesLower/forecastSalesUpper/
// forecastOrders across each date's 24 HourlyForecast rows and derives
// plannedLabourHours/plannedLabourCost from the summed sales.
func RollUp(hourly []forecast.HourlyForecast, policy staffing.Policy) []forecast.DailyForecast {
	byDate := make(map[int64]*forecast.DailyForecast)
	var order []int64

	for _, r := range hourly {
		day := r.ForecastDate.Truncate(24 * time.Hour).Unix()
		d, ok := byDate[day]
		if !ok {
			d = &forecast.DailyForecast{Date: r.ForecastDate}
			byDate[day] = d
			order = append(order, day)
		}
		d.ForecastSales += r.ForecastSales
		d.ForecastSalesLower += r.ForecastSalesLower
		d.ForecastSalesUpper += r.ForecastSalesUpper
		d.ForecastOrders += r.ForecastOrders
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]forecast.DailyForecast, 0, len(order))
	for _, day := range order {
		d := byDate[day]
		d.PlannedLabourHours, d.PlannedLabourCost = staffing.Plan(d.ForecastSales, policy)
		out = append(out, *d)
	}
	return out
}
