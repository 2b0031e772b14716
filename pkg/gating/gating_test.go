package gating

import (
	"testing"
	"time"

	"github.com/brasero/hourly-forecaster/pkg/aggregator"
	"github.com/brasero/hourly-forecaster/pkg/sources"
)

func gridForDays(days int, netSales float64) []aggregator.HourlyCell {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var raw []sources.RawBucket
	for d := 0; d < days; d++ {
		for h := 0; h < 24; h++ {
			raw = append(raw, sources.RawBucket{
				Timestamp: start.AddDate(0, 0, d).Add(time.Duration(h) * time.Hour),
				NetSales:  netSales,
			})
		}
	}
	return aggregator.Aggregate(raw)
}

func TestEvaluateTiers(t *testing.T) {
	cases := []struct {
		days int
		want Sufficiency
	}{
		{5, Low},
		{13, Low},
		{14, Mid},
		{55, Mid},
		{56, High},
		{120, High},
	}
	for _, tc := range cases {
		v := Evaluate(gridForDays(tc.days, 10))
		if v.Sufficiency != tc.want {
			t.Errorf("days=%d: got %s want %s", tc.days, v.Sufficiency, tc.want)
		}
	}
}

func TestEvaluateTrainModelGate(t *testing.T) {
	v := Evaluate(gridForDays(20, 10))
	if v.TrainModelAllowed {
		t.Fatal("20 days should not allow ML training (needs 28)")
	}
	v = Evaluate(gridForDays(28, 10))
	if !v.TrainModelAllowed {
		t.Fatal("28 days should allow ML training")
	}
}

func TestForcesBaselineLowAlwaysTrue(t *testing.T) {
	v := Evaluate(gridForDays(5, 10))
	if !v.ForcesBaseline(0, 12) {
		t.Fatal("LOW tier must force baseline for every bucket")
	}
}

func TestForcesBaselineUndersampledBucket(t *testing.T) {
	v := Evaluate(gridForDays(60, 10))
	// 60 days give every (dow, hour) bucket 8 or 9 samples, above the floor of 6.
	if v.ForcesBaseline(0, 12) {
		t.Fatal("well-sampled bucket should not be forced to baseline")
	}
	if !v.ForcesBaseline(0, 99) {
		t.Fatal("bucket with zero samples should be forced to baseline")
	}
}
