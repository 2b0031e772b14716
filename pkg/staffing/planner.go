// Package staffing converts a day's forecasted sales into a planned labour
// budget: hours to schedule and the cost of scheduling them, using a
// deterministic policy (target labour-cost percentage, hourly wage, clamps).
package staffing

// Policy defines how a day's forecasted sales are translated into a labour
// plan.
type Policy struct {
	// LabourCostPercentage is the target fraction of sales spent on labour.
	// Must be > 0. Default 0.28.
	LabourCostPercentage float64

	// HourlyWage is the average cost of one labour hour. Must be > 0.
	// Default 14.5.
	HourlyWage float64

	// MinHours/MaxHours bound the planned hours regardless of the raw
	// budget-derived figure. Defaults 20 and 120.
	MinHours float64
	MaxHours float64
}

// DefaultPolicy mirrors the reference labour-planning constants.
func DefaultPolicy() Policy {
	return Policy{
		LabourCostPercentage: 0.28,
		HourlyWage:           14.5,
		MinHours:             20,
		MaxHours:             120,
	}
}

// Plan derives planned labour hours and cost from a day's forecasted sales:
// hours = clamp(sales * labourCostPercentage / hourlyWage, [minHours,
// maxHours]); cost = hours * hourlyWage.
func Plan(forecastSales float64, p Policy) (hours, cost float64) {
	p = normalize(p)

	budget := forecastSales * p.LabourCostPercentage
	hours = budget / p.HourlyWage
	hours = clampFloat(hours, p.MinHours, p.MaxHours)
	cost = hours * p.HourlyWage
	return hours, cost
}

func normalize(p Policy) Policy {
	if p.LabourCostPercentage <= 0 {
		p.LabourCostPercentage = 0.28
	}
	if p.HourlyWage <= 0 {
		p.HourlyWage = 14.5
	}
	if p.MinHours <= 0 {
		p.MinHours = 20
	}
	if p.MaxHours <= 0 {
		p.MaxHours = 120
	}
	if p.MaxHours < p.MinHours {
		p.MaxHours = p.MinHours
	}
	return p
}

func clampFloat(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
