// Package evaluator holds out the most recent history, scores the baseline
// and GBRT models per (day-of-week, hour-of-day) bucket, and picks a
// champion for each bucket, with gating overrides applied on top. It also
// computes conformal prediction intervals from ML-model residuals.
package evaluator

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/brasero/hourly-forecaster/pkg/features"
	"github.com/brasero/hourly-forecaster/pkg/gating"
)

const (
	// minHoldoutDays/maxHoldoutDays bound the trailing holdout window: a
	// quarter of total history, clamped to [7,14] days.
	minHoldoutDays = 7
	maxHoldoutDays = 14

	// DefaultConformalCoverage is the holdout residual quantile used to
	// size the prediction interval half-width when a run doesn't
	// override it.
	DefaultConformalCoverage = 0.95

	// championWMAPETolerance is how much lower the ML model's WMAPE must
	// be than the baseline's before it's crowned champion; ties (within
	// tolerance) default to the simpler baseline model.
	championWMAPETolerance = 0.02

	// closedHourAbsSalesThreshold: buckets whose actuals sum to less than
	// this are treated as closed hours and skipped from scoring (unit
	// matches whatever currency NetSales arrives in).
	closedHourAbsSalesThreshold = 1.0
)

// Metrics is the set of scoring metrics computed for one model on one
// bucket's holdout rows.
type Metrics struct {
	WMAPE               float64
	MASE                float64
	Bias                float64
	DirectionalAccuracy float64
	Calibration         float64
}

// BucketDecision is the champion/challenger outcome for one (day-of-week,
// hour-of-day) bucket.
type BucketDecision struct {
	DayOfWeek, HourOfDay int

	ChampionModel   string // "seasonal_naive" or "lgbm"
	ChallengerModel string

	ChampionMetrics   Metrics
	ChallengerMetrics Metrics

	TrainingSamples   int
	ConformalResidual float64
}

// HoldoutSplit partitions chronologically-sorted rows into a training set
// and a trailing holdout window of n_days/4 days, clamped to
// [minHoldoutDays, maxHoldoutDays], matching the reference split policy.
func HoldoutSplit(rows []features.FeatureRow) (train, holdout []features.FeatureRow) {
	if len(rows) == 0 {
		return nil, nil
	}

	dates := distinctDates(rows)
	if len(dates) == 0 {
		return rows, nil
	}

	days := len(dates) / 4
	if days < minHoldoutDays {
		days = minHoldoutDays
	}
	if days > maxHoldoutDays {
		days = maxHoldoutDays
	}
	if days > len(dates)-1 {
		days = len(dates) - 1
	}
	if days < 1 {
		return rows, nil
	}

	splitDate := dates[len(dates)-1-days]

	for _, r := range rows {
		if r.SaleDate.Unix() <= splitDate.t {
			train = append(train, r)
		} else {
			holdout = append(holdout, r)
		}
	}
	return train, holdout
}

func distinctDates(rows []features.FeatureRow) []struct{ t int64 } {
	seen := make(map[int64]struct{})
	var out []struct{ t int64 }
	for _, r := range rows {
		u := r.SaleDate.Unix()
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			out = append(out, struct{ t int64 }{u})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].t < out[j].t })
	return out
}

// WMAPE is the weighted mean absolute percentage error: sum|actual-pred| /
// sum|actual|. Returns 0 when actual sums to zero (avoids division by
// zero on an all-closed bucket).
func WMAPE(actual, predicted []float64) float64 {
	total := sumAbs(actual)
	if total == 0 {
		return 0
	}
	diff := 0.0
	for i := range actual {
		diff += math.Abs(actual[i] - predicted[i])
	}
	return diff / total
}

// MASE is the mean absolute scaled error against a seasonal-naive
// reference (typically lag_168 for the holdout window).
func MASE(actual, predicted, seasonalReference []float64) float64 {
	maeModel := meanAbsDiff(actual, predicted)
	maeNaive := meanAbsDiff(actual, seasonalReference)
	if maeNaive == 0 {
		return 0
	}
	return maeModel / maeNaive
}

// Bias is signed forecast bias: mean(pred-actual)/mean(actual). Positive
// means systematic over-forecasting.
func Bias(actual, predicted []float64) float64 {
	meanActual := stat.Mean(actual, nil)
	if meanActual == 0 {
		return 0
	}
	diffs := make([]float64, len(actual))
	for i := range actual {
		diffs[i] = predicted[i] - actual[i]
	}
	return stat.Mean(diffs, nil) / meanActual
}

// DirectionalAccuracy is the fraction of consecutive-step direction changes
// the model predicted correctly.
func DirectionalAccuracy(actual, predicted []float64) float64 {
	if len(actual) < 2 {
		return 0
	}
	correct := 0
	for i := 1; i < len(actual); i++ {
		actualUp := actual[i]-actual[i-1] >= 0
		predUp := predicted[i]-predicted[i-1] >= 0
		if actualUp == predUp {
			correct++
		}
	}
	return float64(correct) / float64(len(actual)-1)
}

// Calibration is the fraction of holdout actuals that fall inside
// [lower, upper]. Diagnostic only; it does not influence champion
// selection.
func Calibration(actual, lower, upper []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	within := 0
	for i := range actual {
		if actual[i] >= lower[i] && actual[i] <= upper[i] {
			within++
		}
	}
	return float64(within) / float64(len(actual))
}

func sumAbs(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += math.Abs(x)
	}
	return total
}

func meanAbsDiff(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	total := 0.0
	for i := range a {
		total += math.Abs(a[i] - b[i])
	}
	return total / float64(len(a))
}

// bucketRows groups holdout rows by (day_of_week, hour_of_day).
func bucketRows(rows []features.FeatureRow) map[[2]int][]features.FeatureRow {
	out := make(map[[2]int][]features.FeatureRow)
	for _, r := range rows {
		key := [2]int{r.DayOfWeek, r.HourOfDay}
		out[key] = append(out[key], r)
	}
	return out
}

// EvaluatePerBucket scores both models over the holdout set for every
// (day_of_week, hour_of_day) bucket, selects a champion, and applies
// gating overrides. mlPredict/baselinePredict are called once per holdout
// row in that bucket.
func EvaluatePerBucket(
	holdout []features.FeatureRow,
	mlPredict, baselinePredict func(features.FeatureRow) (float64, bool),
	verdict gating.Verdict,
) map[[2]int]BucketDecision {
	decisions := make(map[[2]int]BucketDecision, 7*24)

	for dow := 0; dow < 7; dow++ {
		for hour := 0; hour < 24; hour++ {
			decisions[[2]int{dow, hour}] = BucketDecision{
				DayOfWeek:       dow,
				HourOfDay:       hour,
				ChampionModel:   "seasonal_naive",
				ChallengerModel: "lgbm",
			}
		}
	}

	byBucket := bucketRows(holdout)

	for key, rows := range byBucket {
		dow, hour := key[0], key[1]

		actual := make([]float64, len(rows))
		mlPred := make([]float64, len(rows))
		naivePred := make([]float64, len(rows))
		seasonalRef := make([]float64, len(rows))
		mlAvailable := true

		for i, r := range rows {
			actual[i] = r.NetSales
			if r.HasLag168 {
				seasonalRef[i] = r.Lag168
			}
			np, _ := baselinePredict(r)
			naivePred[i] = np

			mp, ok := mlPredict(r)
			if !ok {
				mlAvailable = false
			}
			mlPred[i] = mp
		}

		decision := BucketDecision{
			DayOfWeek:       dow,
			HourOfDay:       hour,
			ChampionModel:   "seasonal_naive",
			ChallengerModel: "lgbm",
			TrainingSamples: len(rows),
		}

		if sumAbs(actual) < closedHourAbsSalesThreshold {
			decisions[key] = decision
			continue
		}

		naiveMetrics := Metrics{
			WMAPE:               WMAPE(actual, naivePred),
			MASE:                MASE(actual, naivePred, seasonalRef),
			Bias:                Bias(actual, naivePred),
			DirectionalAccuracy: DirectionalAccuracy(actual, naivePred),
		}

		if !mlAvailable || !verdict.TrainModelAllowed {
			decision.ChampionModel = "seasonal_naive"
			decision.ChallengerModel = "lgbm"
			decision.ChampionMetrics = naiveMetrics
			decisions[key] = applyGatingOverride(decision, verdict, dow, hour)
			continue
		}

		mlMetrics := Metrics{
			WMAPE:               WMAPE(actual, mlPred),
			MASE:                MASE(actual, mlPred, seasonalRef),
			Bias:                Bias(actual, mlPred),
			DirectionalAccuracy: DirectionalAccuracy(actual, mlPred),
		}

		if naiveMetrics.WMAPE-mlMetrics.WMAPE > championWMAPETolerance {
			decision.ChampionModel = "lgbm"
			decision.ChallengerModel = "seasonal_naive"
			decision.ChampionMetrics = mlMetrics
			decision.ChallengerMetrics = naiveMetrics
		} else {
			decision.ChampionModel = "seasonal_naive"
			decision.ChallengerModel = "lgbm"
			decision.ChampionMetrics = naiveMetrics
			decision.ChallengerMetrics = mlMetrics
		}

		decisions[key] = applyGatingOverride(decision, verdict, dow, hour)
	}

	return decisions
}

// applyGatingOverride forces a bucket's champion to baseline when the
// gating verdict says this bucket is undersampled or the whole location is
// LOW sufficiency, regardless of which model scored better.
func applyGatingOverride(d BucketDecision, verdict gating.Verdict, dow, hour int) BucketDecision {
	if d.ChampionModel == "lgbm" && verdict.ForcesBaseline(dow, hour) {
		d.ChampionModel = "seasonal_naive"
		d.ChallengerModel = "lgbm"
		d.ChampionMetrics, d.ChallengerMetrics = d.ChallengerMetrics, d.ChampionMetrics
	}
	return d
}

// ConformalResiduals computes, per bucket, the coverage-th percentile of
// absolute ML residuals over the holdout set — the prediction interval
// half-width. Buckets with fewer than 3 holdout rows get a zero-width
// interval, matching the reference implementation's floor. coverage of 0
// defaults to DefaultConformalCoverage.
func ConformalResiduals(holdout []features.FeatureRow, mlPredict func(features.FeatureRow) (float64, bool), coverage float64) map[[2]int]float64 {
	if coverage <= 0 {
		coverage = DefaultConformalCoverage
	}

	out := make(map[[2]int]float64)
	byBucket := bucketRows(holdout)

	for key, rows := range byBucket {
		if len(rows) < 3 {
			out[key] = 0
			continue
		}

		residuals := make([]float64, 0, len(rows))
		for _, r := range rows {
			pred, ok := mlPredict(r)
			if !ok {
				continue
			}
			residuals = append(residuals, math.Abs(r.NetSales-pred))
		}
		if len(residuals) < 3 {
			out[key] = 0
			continue
		}

		sort.Float64s(residuals)
		out[key] = stat.Quantile(coverage, stat.Empirical, residuals, nil)
	}

	return out
}
