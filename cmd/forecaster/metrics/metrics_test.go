package metrics

import "testing"

func TestNewReturnsNonNilMetrics(t *testing.T) {
	m := New("loc-metrics-new")
	if m == nil {
		t.Fatal("New() returned nil")
	}
}

func TestRecordStageDoesNotPanic(t *testing.T) {
	m := New("loc-metrics-stage")
	for _, stage := range []string{"collect", "train", "evaluate", "predict", "total"} {
		m.RecordStage(stage, 0.1)
	}
}

func TestRecordErrorDoesNotPanic(t *testing.T) {
	m := New("loc-metrics-error")
	m.RecordError("train", "gbrt_failed")
}

func TestSetRunSummaryDoesNotPanic(t *testing.T) {
	m := New("loc-metrics-summary")
	m.SetRunSummary(0.18, 100, 68, 168)
}
