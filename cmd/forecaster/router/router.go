// Package router configures HTTP routes for the forecaster's HTTP API.
//
// The forecaster exposes an HTTP server (port 8081 by default) providing
// health checks, Prometheus metrics, and a single endpoint to trigger and
// retrieve a forecast run for one location.
//
// Routes configured:
//   - POST /runs/{location_id} - Run the forecast pipeline for a location and
//     return the engine's structured run summary (§6 exit semantics)
//   - GET  /healthz            - Health check endpoint (returns 200 OK)
//   - GET  /metrics            - Prometheus metrics endpoint
//
// The REST transport layer deliberately stays thin: no auth, no batching,
// no content negotiation. The request body is the already-parsed logical
// invocation fields; everything else (row parsing, authn) is out of scope.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brasero/hourly-forecaster/pkg/engine"
	"github.com/brasero/hourly-forecaster/pkg/forecast"
	"github.com/brasero/hourly-forecaster/pkg/httpx"
	"github.com/brasero/hourly-forecaster/pkg/staffing"
)

var locationIDRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,251}[a-zA-Z0-9])?$`)

// runRequest is the JSON body for POST /runs/{location_id}: the logical
// invocation fields from spec.md §6, minus location_id (which comes from
// the path) and data_source (fixed by the Engine's configured Source).
type runRequest struct {
	LocationName       string  `json:"location_name"`
	HorizonDays        int     `json:"horizon_days"`
	AverageTicketValue float64 `json:"average_ticket_value"`
	OpenHours          *struct {
		OpenTime  string `json:"open_time"`
		CloseTime string `json:"close_time"`
		PrepStart string `json:"prep_start"`
		PrepEnd   string `json:"prep_end"`
		Timezone  string `json:"timezone"`
	} `json:"open_hours"`
	LabourPolicy *struct {
		LabourCostPercentage float64 `json:"labour_cost_percentage"`
		HourlyWage           float64 `json:"hourly_wage"`
		MinHours             float64 `json:"min_hours"`
		MaxHours             float64 `json:"max_hours"`
	} `json:"labour_policy"`
}

// Runner executes one location's forecast run. *engine.Engine satisfies
// this.
type Runner interface {
	Run(ctx context.Context, req engine.Request) (engine.Result, error)
}

// SetupRoutes configures HTTP endpoints for the forecaster.
func SetupRoutes(runner Runner, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/healthz", httpx.HealthHandler())
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/runs/", handleRun(runner, logger))

	return mux
}

// handleRun returns a handler for POST /runs/{location_id}.
func handleRun(runner Runner, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpx.WriteErrorMessage(w, http.StatusMethodNotAllowed, "only POST is supported")
			return
		}

		locationID := r.URL.Path[len("/runs/"):]
		if locationID == "" {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "location_id path segment required")
			return
		}
		if !locationIDRegex.MatchString(locationID) {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid location_id format")
			return
		}

		var body runRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
		}

		req := engine.Request{
			LocationID:         locationID,
			LocationName:       body.LocationName,
			HorizonDays:        body.HorizonDays,
			AverageTicketValue: body.AverageTicketValue,
		}

		if body.OpenHours != nil {
			oh, err := forecast.ParseOpenHoursSpec(
				body.OpenHours.OpenTime, body.OpenHours.CloseTime,
				body.OpenHours.PrepStart, body.OpenHours.PrepEnd,
				body.OpenHours.Timezone,
			)
			if err != nil {
				httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid open_hours: "+err.Error())
				return
			}
			req.OpenHours = oh
		}

		if body.LabourPolicy != nil {
			req.LabourPolicy = staffing.Policy{
				LabourCostPercentage: body.LabourPolicy.LabourCostPercentage,
				HourlyWage:           body.LabourPolicy.HourlyWage,
				MinHours:             body.LabourPolicy.MinHours,
				MaxHours:             body.LabourPolicy.MaxHours,
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		defer cancel()

		result, err := runner.Run(ctx, req)
		if err != nil {
			logger.Error("run failed", "location_id", locationID, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "run failed")
			return
		}

		status := http.StatusOK
		if !result.Success {
			status = http.StatusUnprocessableEntity
		}

		if err := httpx.WriteJSON(w, status, resultResponse(result)); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}

func resultResponse(result engine.Result) map[string]any {
	return map[string]any{
		"success": result.Success,
		"reason":  result.Reason,
		"gating": map[string]any{
			"sufficiency":     result.Gating.Sufficiency,
			"blend_ratio":     result.Gating.BlendRatio,
			"algorithm_label": result.Gating.AlgorithmLabel,
		},
		"metrics": map[string]any{
			"wmape":                result.Metrics.WMAPE,
			"mase":                 result.Metrics.MASE,
			"bias":                 result.Metrics.Bias,
			"directional_accuracy": result.Metrics.DirectionalAccuracy,
			"calibration":          result.Metrics.Calibration,
		},
		"registry_summary": map[string]any{
			"mlWins":       result.Registry.MLWins,
			"baselineWins": result.Registry.BaselineWins,
			"totalBuckets": result.Registry.TotalBuckets,
		},
		"sample_hourly": result.SampleHourly,
		"sample_daily":  result.SampleDaily,
	}
}

