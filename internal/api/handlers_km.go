// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cadence/internal/detection"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/models"
)

// IngestBatch handles POST /api/v1/km/batches.
//
// The body is a models.IngestRequest. The response data is the batch's
// models.ScoreResult; a batch that could not be scored returns the neutral
// result with status 200.
func (h *Handler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.IngestRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondEngineError(w, r, err)
		return
	}
	if err := h.auth.Authorize(r.Context(), req.DeviceID, true); err != nil {
		respondEngineError(w, r, err)
		return
	}

	ctx := detection.ContextWithSource(r.Context(), detection.SourceHTTP)
	result, err := h.engine.Ingest(ctx, req.DeviceID, req.Events)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	if pub := h.scorePublisher(); pub != nil && result.Loss != nil {
		if err := pub.PublishScore(ctx, req.DeviceID, result); err != nil {
			// Publishing is best effort; the batch is already stored.
			logging.Ctx(logging.ContextWithDeviceID(ctx, req.DeviceID)).Warn().Err(err).Msg("Failed to publish score")
		}
	}

	respondSuccess(w, result, start, nil)
}

// DeviceAnomalies handles GET /api/v1/km/anomalies. device_id is required;
// the data is the device's history as {timestamp, score} points in
// insertion order.
func (h *Handler) DeviceAnomalies(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	filter, err := parseAnomalyFilter(r)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	if filter.DeviceID == "" {
		respondEngineError(w, r, &detection.ValidationError{Fields: []detection.FieldError{
			{Field: "device_id", Message: "device_id is required"},
		}})
		return
	}
	if err := h.auth.Authorize(r.Context(), filter.DeviceID, false); err != nil {
		respondEngineError(w, r, err)
		return
	}

	records, err := h.engine.ListAnomalies(r.Context(), filter)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	points := make([]models.AnomalyPoint, len(records))
	for i, rec := range records {
		points[i] = models.AnomalyPoint{Timestamp: rec.Timestamp, Score: rec.Score}
	}
	count := len(points)
	respondSuccess(w, points, start, &count)
}

// DashboardAnomalies handles GET /api/v1/dashboard/km/anomalies. It
// returns full records; device_id is optional.
func (h *Handler) DashboardAnomalies(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	filter, err := parseAnomalyFilter(r)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	records, err := h.engine.ListAnomalies(r.Context(), filter)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	count := len(records)
	respondSuccess(w, records, start, &count)
}

// Devices handles GET /api/v1/km/devices.
func (h *Handler) Devices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	devices := h.engine.Registry().Devices()
	count := len(devices)
	respondSuccess(w, devices, start, &count)
}

// DeviceScore handles GET /api/v1/km/devices/{id}/score. It evaluates the
// device's current window without training or persisting.
func (h *Handler) DeviceScore(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	deviceID := chi.URLParam(r, "id")

	if err := h.auth.Authorize(r.Context(), deviceID, false); err != nil {
		respondEngineError(w, r, err)
		return
	}

	result, err := h.engine.Score(r.Context(), deviceID)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, result, start, nil)
}
