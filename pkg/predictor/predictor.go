// Package predictor generates future HourlyForecast rows by recursively
// feeding each hour's prediction back into a mutable sales buffer so later
// hours' lag features see it, exactly the cyclic dependency spec.md's
// design notes call out: fold it into an explicit buffer, not the feature
// builder.
package predictor

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/brasero/hourly-forecaster/pkg/aggregator"
	"github.com/brasero/hourly-forecaster/pkg/evaluator"
	"github.com/brasero/hourly-forecaster/pkg/features"
	"github.com/brasero/hourly-forecaster/pkg/forecast"
	"github.com/brasero/hourly-forecaster/pkg/gating"
	"github.com/brasero/hourly-forecaster/pkg/models"
	"github.com/brasero/hourly-forecaster/pkg/registry"
)

// defaultAverageTicketValue is the hard-coded divisor used to derive
// forecastOrders from forecastSales, kept as the default per the resolved
// Open Question (documented in DESIGN.md); callers may override it per
// location.
const defaultAverageTicketValue = 25.0

const rollingWindow = 7

// Inputs bundles everything the recursive predictor needs for one
// location's future horizon.
type Inputs struct {
	History            []aggregator.HourlyCell
	Table              registry.Table
	MLModel            models.Model // nil if the ML model was never trained
	BaselineModel      models.Model
	Conformal          map[[2]int]float64
	Verdict            gating.Verdict
	Holidays           features.HolidaySet
	StartDate          time.Time // first future calendar date, truncated to midnight UTC
	HorizonDays        int
	AverageTicketValue float64
}

// Predict runs the recursive forecast for the full horizon, applying the
// MID-tier blend (if applicable) but NOT the open-hours mask — masking is
// a distinct, explicit step applied by Mask.
func Predict(in Inputs) []forecast.HourlyForecast {
	ticket := in.AverageTicketValue
	if ticket <= 0 {
		ticket = defaultAverageTicketValue
	}
	holidays := in.Holidays
	if holidays == nil {
		holidays = features.DefaultHolidays
	}

	buffer, rolling := seedBuffer(in.History)

	normal := runRecursive(cloneBuffer(buffer), cloneRolling(rolling), in.Table, in.MLModel, in.BaselineModel, in.Conformal, holidays, in.StartDate, in.HorizonDays, ticket)

	if in.Verdict.Sufficiency != gating.Mid || in.MLModel == nil {
		return normal
	}

	baselineOnly := registry.NewTable(in.Table.LocationID, forceAllBaseline(in.Table))
	blended := runRecursive(cloneBuffer(buffer), cloneRolling(rolling), baselineOnly, in.MLModel, in.BaselineModel, in.Conformal, holidays, in.StartDate, in.HorizonDays, ticket)

	return blendRows(normal, blended, in.Verdict.BlendRatio, in.Verdict.AlgorithmLabel)
}

func forceAllBaseline(t registry.Table) map[[2]int]evaluator.BucketDecision {
	out := make(map[[2]int]evaluator.BucketDecision, len(t.Decisions))
	for key, d := range t.Decisions {
		d.ChampionModel = "seasonal_naive"
		out[key] = d
	}
	return out
}

func blendRows(ml, baseline []forecast.HourlyForecast, blendRatio float64, algorithmLabel string) []forecast.HourlyForecast {
	out := make([]forecast.HourlyForecast, len(ml))
	for i := range ml {
		a, b := ml[i], baseline[i]
		out[i] = forecast.HourlyForecast{
			ForecastDate:       a.ForecastDate,
			HourOfDay:          a.HourOfDay,
			ForecastSales:      blend(a.ForecastSales, b.ForecastSales, blendRatio),
			ForecastSalesLower: blend(a.ForecastSalesLower, b.ForecastSalesLower, blendRatio),
			ForecastSalesUpper: blend(a.ForecastSalesUpper, b.ForecastSalesUpper, blendRatio),
			ForecastOrders:     blend(a.ForecastOrders, b.ForecastOrders, blendRatio),
			ModelUsed:          algorithmLabel,
			BucketWMAPE:        a.BucketWMAPE,
			BucketMASE:         a.BucketMASE,
		}
	}
	return out
}

func blend(ml, baseline, ratio float64) float64 {
	return ratio*ml + (1-ratio)*baseline
}

// bufferKey identifies one hourly cell in the recursive sales buffer.
type bufferKey struct {
	day  int64 // SaleDate truncated to midnight UTC, as Unix seconds
	hour int
}

func keyFor(date time.Time, hour int) bufferKey {
	return bufferKey{day: date.Truncate(24 * time.Hour).Unix(), hour: hour}
}

func seedBuffer(history []aggregator.HourlyCell) (map[bufferKey]float64, map[int][]float64) {
	buffer := make(map[bufferKey]float64, len(history))
	rolling := make(map[int][]float64)

	for _, c := range history {
		buffer[keyFor(c.SaleDate, c.HourOfDay)] = c.NetSales

		trailing := rolling[c.HourOfDay]
		trailing = append(trailing, c.NetSales)
		if len(trailing) > rollingWindow {
			trailing = trailing[1:]
		}
		rolling[c.HourOfDay] = trailing
	}
	return buffer, rolling
}

func cloneBuffer(src map[bufferKey]float64) map[bufferKey]float64 {
	out := make(map[bufferKey]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func cloneRolling(src map[int][]float64) map[int][]float64 {
	out := make(map[int][]float64, len(src))
	for k, v := range src {
		cp := make([]float64, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// runRecursive walks the future horizon hour by hour, writing each
// prediction back into buffer before moving to the next hour, so
// subsequent lag lookups (including across midnight and into later days)
// see it.
func runRecursive(
	buffer map[bufferKey]float64,
	rolling map[int][]float64,
	table registry.Table,
	mlModel, baselineModel models.Model,
	conformal map[[2]int]float64,
	holidays features.HolidaySet,
	startDate time.Time,
	horizonDays int,
	averageTicketValue float64,
) []forecast.HourlyForecast {
	rows := make([]forecast.HourlyForecast, 0, horizonDays*24)

	for d := 0; d < horizonDays; d++ {
		date := startDate.AddDate(0, 0, d).Truncate(24 * time.Hour)
		dow := aggregator.Weekday0Monday(date)

		for hour := 0; hour < 24; hour++ {
			decision := table.Decision(dow, hour)

			vector := buildSingleFeatureVector(buffer, rolling, date, hour, dow, holidays)

			var pred float64
			modelUsed := "seasonal_naive"

			if decision.ChampionModel == "lgbm" && mlModel != nil {
				mp, err := mlModel.Predict(vector)
				if err == nil && !math.IsNaN(mp) {
					pred = mp
					modelUsed = "lgbm"
				} else {
					bp, _ := baselineModel.Predict(vector)
					pred = bp
				}
			} else {
				bp, _ := baselineModel.Predict(vector)
				pred = bp
			}

			if pred < 0 {
				pred = 0
			}

			// The conformal half-width comes from ML residuals, so it only
			// applies to hours the ML model predicted; baseline hours get a
			// zero-width interval.
			residual := 0.0
			if modelUsed == "lgbm" {
				residual = conformal[[2]int{dow, hour}]
			}
			lower := pred - residual
			if lower < 0 {
				lower = 0
			}
			upper := pred + residual

			orders := pred / averageTicketValue

			buffer[keyFor(date, hour)] = pred
			trailing := append(rolling[hour], pred)
			if len(trailing) > rollingWindow {
				trailing = trailing[1:]
			}
			rolling[hour] = trailing

			rows = append(rows, forecast.HourlyForecast{
				ForecastDate:       date,
				HourOfDay:          hour,
				ForecastSales:      pred,
				ForecastSalesLower: lower,
				ForecastSalesUpper: upper,
				ForecastOrders:     orders,
				ModelUsed:          modelUsed,
				BucketWMAPE:        decision.ChampionMetrics.WMAPE,
				BucketMASE:         decision.ChampionMetrics.MASE,
			})
		}
	}

	return rows
}

// buildSingleFeatureVector constructs one inference-time feature vector
// from the mutable buffer, in features.Columns order. Missing lags are
// encoded as NaN, same convention as features.FeatureRow.Vector — the
// baseline model's Predict already knows how to fall through lag_168 ->
// lag_24 -> hourly mean -> 0 from that encoding.
func buildSingleFeatureVector(buffer map[bufferKey]float64, rolling map[int][]float64, date time.Time, hour, dow int, holidays features.HolidaySet) []float64 {
	isWeekend := dow >= 5
	month := int(date.Month())
	_, weekOfYear := date.ISOWeek()
	dayOfMonth := date.Day()
	isHoliday := holidays.Contains(date)
	isPayday := dayOfMonth == 1 || dayOfMonth == 15 || dayOfMonth >= 25

	lag1, lag1ok := lookupLag1(buffer, date, hour)
	lag24, lag24ok := buffer[keyFor(date.AddDate(0, 0, -1), hour)]
	lag168, lag168ok := buffer[keyFor(date.AddDate(0, 0, -7), hour)]
	lag336, lag336ok := buffer[keyFor(date.AddDate(0, 0, -14), hour)]

	mean, std := rollingStats(rolling[hour])

	return []float64{
		float64(hour), float64(dow), boolToFloat(isWeekend),
		float64(month), float64(weekOfYear), float64(dayOfMonth),
		boolToFloat(isHoliday), boolToFloat(isPayday),
		orNaN(lag1, lag1ok), orNaN(lag24, lag24ok),
		orNaN(lag168, lag168ok), orNaN(lag336, lag336ok),
		mean, std,
	}
}

// lookupLag1 is the previous hour's sales, falling back across midnight to
// hour 23 of the previous day.
func lookupLag1(buffer map[bufferKey]float64, date time.Time, hour int) (float64, bool) {
	if hour > 0 {
		v, ok := buffer[keyFor(date, hour-1)]
		return v, ok
	}
	v, ok := buffer[keyFor(date.AddDate(0, 0, -1), 23)]
	return v, ok
}

func rollingStats(trailing []float64) (mean, std float64) {
	if len(trailing) == 0 {
		return 0, 0
	}
	if len(trailing) == 1 {
		return trailing[0], 0
	}
	return stat.MeanStdDev(trailing, nil)
}

func orNaN(v float64, ok bool) float64 {
	if !ok {
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

// Mask zeros every row's sales/orders/interval outside the service window,
// applied as the explicit MASKED stage after prediction.
func Mask(rows []forecast.HourlyForecast, hours forecast.OpenHoursSpec) []forecast.HourlyForecast {
	out := make([]forecast.HourlyForecast, len(rows))
	for i, r := range rows {
		if !hours.IsServiceHour(r.HourOfDay) {
			r.ForecastSales = 0
			r.ForecastSalesLower = 0
			r.ForecastSalesUpper = 0
			r.ForecastOrders = 0
		}
		out[i] = r
	}
	return out
}
