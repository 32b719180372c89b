// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package models

import (
	"time"
)

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Status is "success" or "error". On success Data carries the payload; on
// failure Error is populated and Data is null.
//
//	{
//	  "status": "success",
//	  "data": {"anomaly": false, "score": 0.42, "loss": 0.0043},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z", "query_time_ms": 12}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Count       *int      `json:"count,omitempty"`
}

// APIError is a structured error with a machine-readable code.
//
// Codes used by the API:
//   - VALIDATION_ERROR: malformed batch or query parameters
//   - STORAGE_ERROR: the event or anomaly store failed
//   - AUTHENTICATION_ERROR: missing or invalid agent token
//   - AUTHORIZATION_ERROR: token subject does not match the device
//   - RATE_LIMIT_EXCEEDED: too many batches for a device
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status            string            `json:"status"` // "healthy" or "degraded"
	Version           string            `json:"version"`
	DatabaseConnected bool              `json:"database_connected"`
	ModelSteps        int64             `json:"model_steps"`
	ModelFinite       bool              `json:"model_finite"`
	LastTrainedAt     *time.Time        `json:"last_trained_at,omitempty"`
	ActiveDevices     int               `json:"active_devices"`
	Components        map[string]string `json:"components,omitempty"`
	Uptime            float64           `json:"uptime_seconds"`
}
