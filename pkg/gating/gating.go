// Package gating assesses whether a location has enough history to trust a
// machine-learned forecast, and to what degree. It decides the sufficiency
// tier (LOW/MID/HIGH), the blend ratio between baseline and ML, and the
// minimum per-(day-of-week,hour) sample count used to override individual
// bucket decisions later in the evaluator.
package gating

import (
	"github.com/brasero/hourly-forecaster/pkg/aggregator"
)

const (
	lowMaxDays  = 14
	midMaxDays  = 56
	midBlend    = 0.3

	// minBucketSamplesForML is the minimum count of non-zero-sales
	// observations a (dow, hour) bucket must have before the ML model is
	// trusted for it, even in the MID/HIGH tiers.
	minBucketSamplesForML = 6

	// minTrainDaysForModel additionally gates training of the ML model
	// itself: a run can be gating-MID by day count yet still too young
	// for the boosted tree to be trained at all.
	minTrainDaysForModel = 28
)

// Sufficiency is the data-sufficiency tier for a location's history.
type Sufficiency string

const (
	Low  Sufficiency = "LOW"
	Mid  Sufficiency = "MID"
	High Sufficiency = "HIGH"
)

// Verdict is the outcome of gating a location's aggregated history.
type Verdict struct {
	Sufficiency       Sufficiency
	BlendRatio        float64 // 0.0 = baseline only, 1.0 = full ML
	TotalDays         int
	MinBucketSamples  int // smallest populated-bucket sample count across all (dow,hour)
	AlgorithmLabel    string
	TrainModelAllowed bool // false if TotalDays < minTrainDaysForModel

	// BucketSamples is the count of non-zero observations per (dow, hour),
	// used by the evaluator to force baseline on under-sampled buckets.
	BucketSamples map[[2]int]int
}

// Evaluate assesses sufficiency from a dense hourly grid.
func Evaluate(grid []aggregator.HourlyCell) Verdict {
	totalDays := aggregator.TotalDays(grid)

	bucketSamples := make(map[[2]int]int)
	for _, c := range grid {
		if c.NetSales > 0 {
			bucketSamples[[2]int{c.DayOfWeek, c.HourOfDay}]++
		}
	}

	minBucket := 0
	first := true
	for _, n := range bucketSamples {
		if first || n < minBucket {
			minBucket = n
			first = false
		}
	}

	v := Verdict{
		TotalDays:         totalDays,
		MinBucketSamples:  minBucket,
		BucketSamples:     bucketSamples,
		TrainModelAllowed: totalDays >= minTrainDaysForModel,
	}

	switch {
	case totalDays < lowMaxDays:
		v.Sufficiency = Low
		v.BlendRatio = 0.0
		v.AlgorithmLabel = "BASELINE_ONLY"
	case totalDays < midMaxDays:
		v.Sufficiency = Mid
		v.BlendRatio = midBlend
		v.AlgorithmLabel = "BLEND_Naive70_LightGBM30"
	default:
		v.Sufficiency = High
		v.BlendRatio = 1.0
		v.AlgorithmLabel = "LightGBM_ChampionChallenger"
	}

	return v
}

// ForcesBaseline reports whether a (dow, hour) bucket's ML champion should
// be overridden to baseline: always true in LOW, and true in MID/HIGH for
// any bucket with fewer than minBucketSamplesForML observations.
func (v Verdict) ForcesBaseline(dow, hour int) bool {
	if v.Sufficiency == Low {
		return true
	}
	return v.BucketSamples[[2]int{dow, hour}] < minBucketSamplesForML
}

// MinBucketSamplesForML exposes the threshold for callers that need to log
// or report it alongside a gating decision.
func MinBucketSamplesForML() int { return minBucketSamplesForML }
