// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package models

import "time"

// FeatureWidth is the number of numeric features extracted per event.
const FeatureWidth = 6

// FeatureVector is the numeric encoding of one event:
// is_click, is_key, delta_t, x_norm, y_norm, key_norm.
type FeatureVector [FeatureWidth]float64

// AnomalyRecord is one persisted batch score. Records are append-only.
type AnomalyRecord struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id"`
	Timestamp float64   `json:"timestamp"`
	Score     float64   `json:"score"`
	Loss      *float64  `json:"loss,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ScoreResult is the outcome of ingesting one batch.
//
// Score is the reconstruction error scaled by 100. Loss is the training-step
// loss and is null when no training happened.
type ScoreResult struct {
	Anomaly bool     `json:"anomaly"`
	Score   float64  `json:"score"`
	Loss    *float64 `json:"loss"`
}

// NeutralResult is returned when a batch produced no usable score.
func NeutralResult() ScoreResult {
	return ScoreResult{Anomaly: false, Score: 0.0, Loss: nil}
}

// AnomalyFilter selects anomaly records. Start and End are inclusive
// timestamp bounds; an empty DeviceID matches every device.
type AnomalyFilter struct {
	DeviceID string
	Start    *float64
	End      *float64
	Limit    int
}

// AnomalyPoint is the compact form returned by the per-device query.
type AnomalyPoint struct {
	Timestamp float64 `json:"timestamp"`
	Score     float64 `json:"score"`
}

// DeviceInfo describes a device currently tracked by the engine.
type DeviceInfo struct {
	DeviceID   string    `json:"device_id"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	Batches    int64     `json:"batches"`
	LastScore  float64   `json:"last_score"`
	LastResult bool      `json:"last_anomaly"`
}
