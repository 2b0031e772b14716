package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brasero/hourly-forecaster/pkg/engine"
	"github.com/brasero/hourly-forecaster/pkg/registry"
)

type fakeRunner struct {
	result engine.Result
	err    error
	gotReq engine.Request
}

func (f *fakeRunner) Run(ctx context.Context, req engine.Request) (engine.Result, error) {
	f.gotReq = req
	return f.result, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSetupRoutes(t *testing.T) {
	mux := SetupRoutes(&fakeRunner{}, discardLogger())
	if mux == nil {
		t.Fatal("SetupRoutes() returned nil")
	}
}

func TestHealthEndpoint(t *testing.T) {
	mux := SetupRoutes(&fakeRunner{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "OK" {
		t.Errorf("body = %q, want %q", w.Body.String(), "OK")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := SetupRoutes(&fakeRunner{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get("Content-Type") == "" {
		t.Error("Content-Type header should be set for metrics endpoint")
	}
}

func TestRunEndpoint_Success(t *testing.T) {
	runner := &fakeRunner{result: engine.Result{Success: true, Registry: registry.Summary{MLWins: 100, BaselineWins: 68, TotalBuckets: 168}}}
	mux := SetupRoutes(runner, discardLogger())

	body, _ := json.Marshal(map[string]any{"location_name": "Gran Via", "horizon_days": 14})
	req := httptest.NewRequest(http.MethodPost, "/runs/loc-1", bytes.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	if runner.gotReq.LocationID != "loc-1" {
		t.Errorf("LocationID = %q, want %q", runner.gotReq.LocationID, "loc-1")
	}
	if runner.gotReq.LocationName != "Gran Via" {
		t.Errorf("LocationName = %q, want %q", runner.gotReq.LocationName, "Gran Via")
	}
}

func TestRunEndpoint_AbortedRunReturns422(t *testing.T) {
	runner := &fakeRunner{result: engine.Result{Success: false, Reason: "insufficient history"}}
	mux := SetupRoutes(runner, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/runs/loc-young", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestRunEndpoint_MissingLocationID(t *testing.T) {
	mux := SetupRoutes(&fakeRunner{}, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/runs/", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRunEndpoint_InvalidLocationID(t *testing.T) {
	mux := SetupRoutes(&fakeRunner{}, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/runs/invalid!id", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRunEndpoint_MethodNotAllowed(t *testing.T) {
	mux := SetupRoutes(&fakeRunner{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/runs/loc-1", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestRunEndpoint_InvalidJSONBody(t *testing.T) {
	mux := SetupRoutes(&fakeRunner{}, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/runs/loc-1", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRunEndpoint_EngineError(t *testing.T) {
	runner := &fakeRunner{err: context.DeadlineExceeded}
	mux := SetupRoutes(runner, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/runs/loc-1", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
