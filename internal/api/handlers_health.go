// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/cadence/internal/models"
)

const healthCheckTimeout = 2 * time.Second

// Health handles GET /api/v1/health. It always answers 200; Status is
// "degraded" when the database or a registered component is unavailable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := h.collectHealth(r.Context())
	respondSuccess(w, status, start, nil)
}

// HealthLive handles GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"status": "alive"},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// HealthReady handles GET /api/v1/health/ready. It answers 503 until the
// database and every registered component respond.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := h.collectHealth(r.Context())
	if status.Status != "healthy" {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     status,
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    &models.APIError{Code: "NOT_READY", Message: "service is not ready"},
		})
		return
	}
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     status,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

func (h *Handler) collectHealth(ctx context.Context) models.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	trainer := h.engine.Trainer()
	status := models.HealthStatus{
		Status:            "healthy",
		Version:           h.version,
		DatabaseConnected: h.db != nil && h.db.Ping(ctx) == nil,
		ModelSteps:        trainer.Steps(),
		ModelFinite:       trainer.WeightsFinite(),
		ActiveDevices:     h.engine.Registry().Len(),
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if last := trainer.LastTrainedAt(); !last.IsZero() {
		status.LastTrainedAt = &last
	}
	if !status.DatabaseConnected || !status.ModelFinite {
		status.Status = "degraded"
	}

	checks := h.healthChecks()
	if len(checks) > 0 {
		status.Components = make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status.Components[name] = "unavailable: " + err.Error()
				status.Status = "degraded"
				continue
			}
			status.Components[name] = "ok"
		}
	}
	return status
}
