// Package registry holds the per-(day-of-week, hour-of-day) champion table a
// location run produces, and flattens it to audit rows for the registry
// sink.
package registry

import (
	"time"

	"github.com/brasero/hourly-forecaster/pkg/evaluator"
)

// Table is the 168-entry bucket registry for one location run.
type Table struct {
	LocationID string
	Decisions  map[[2]int]evaluator.BucketDecision
}

// NewTable wraps a decision map computed by evaluator.EvaluatePerBucket,
// guaranteeing the 168-entry invariant by filling any gap with a
// baseline-only zero-metric decision.
func NewTable(locationID string, decisions map[[2]int]evaluator.BucketDecision) Table {
	full := make(map[[2]int]evaluator.BucketDecision, 7*24)
	for dow := 0; dow < 7; dow++ {
		for hour := 0; hour < 24; hour++ {
			key := [2]int{dow, hour}
			if d, ok := decisions[key]; ok {
				full[key] = d
				continue
			}
			full[key] = evaluator.BucketDecision{
				DayOfWeek:       dow,
				HourOfDay:       hour,
				ChampionModel:   "seasonal_naive",
				ChallengerModel: "lgbm",
			}
		}
	}
	return Table{LocationID: locationID, Decisions: full}
}

// Champion returns the champion model name for a (dow, hour) bucket,
// defaulting to seasonal_naive if the bucket is somehow absent.
func (t Table) Champion(dow, hour int) string {
	if d, ok := t.Decisions[[2]int{dow, hour}]; ok {
		return d.ChampionModel
	}
	return "seasonal_naive"
}

// Decision returns the full decision for a bucket.
func (t Table) Decision(dow, hour int) evaluator.BucketDecision {
	return t.Decisions[[2]int{dow, hour}]
}

// Summary is the mlWins/baselineWins/totalBuckets tally reported in a run's
// exit summary.
type Summary struct {
	MLWins         int
	BaselineWins   int
	TotalBuckets   int
}

// Summarize tallies how many of the 168 buckets each model champions.
func (t Table) Summarize() Summary {
	s := Summary{TotalBuckets: len(t.Decisions)}
	for _, d := range t.Decisions {
		if d.ChampionModel == "seasonal_naive" {
			s.BaselineWins++
		} else {
			s.MLWins++
		}
	}
	return s
}

// Row is one flattened registry-sink record.
type Row struct {
	LocationID        string
	DayOfWeek         int
	HourOfDay         int
	ChampionModel     string
	ChallengerModel   string
	ChampionWMAPE     float64
	ChampionMASE      float64
	ChampionBias      float64
	ChampionDirAcc    float64
	ChallengerWMAPE   float64
	TrainingSamples   int
	ConformalResidual float64
	LastEvaluatedAt   time.Time
}

// Rows flattens the table to up to 168 registry-sink rows, stamped with
// evaluatedAt (passed in rather than read from the clock, so a run stays
// reproducible given a fixed input).
func (t Table) Rows(evaluatedAt time.Time) []Row {
	rows := make([]Row, 0, len(t.Decisions))
	for key, d := range t.Decisions {
		rows = append(rows, Row{
			LocationID:        t.LocationID,
			DayOfWeek:         key[0],
			HourOfDay:         key[1],
			ChampionModel:     d.ChampionModel,
			ChallengerModel:   d.ChallengerModel,
			ChampionWMAPE:     d.ChampionMetrics.WMAPE,
			ChampionMASE:      d.ChampionMetrics.MASE,
			ChampionBias:      d.ChampionMetrics.Bias,
			ChampionDirAcc:    d.ChampionMetrics.DirectionalAccuracy,
			ChallengerWMAPE:   d.ChallengerMetrics.WMAPE,
			TrainingSamples:   d.TrainingSamples,
			ConformalResidual: d.ConformalResidual,
			LastEvaluatedAt:   evaluatedAt,
		})
	}
	return rows
}
