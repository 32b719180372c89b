// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package features converts a device window of raw events into the numeric
// sequence consumed by the reconstruction model.
//
// Each event becomes a six-element vector:
//
//	[is_click, is_key, delta_t, x/1920, y/1080, key_code/255]
//
// The extractor is pure: the same window always yields the same sequence.
package features

import (
	"github.com/tomtom215/cadence/internal/models"
)

// Reference screen and key-code ranges used for normalisation.
const (
	ScreenWidth  = 1920.0
	ScreenHeight = 1080.0
	KeyCodeRange = 255.0
)

// Feature indices within a models.FeatureVector.
const (
	IdxClick = iota
	IdxKey
	IdxDelta
	IdxX
	IdxY
	IdxKeyCode
)

// Extract encodes an ascending-by-timestamp window. The result has one vector
// per event and no padding. A nil or empty window yields nil.
func Extract(window []models.RawEvent) []models.FeatureVector {
	if len(window) == 0 {
		return nil
	}

	seq := make([]models.FeatureVector, len(window))
	for i := range window {
		ev := &window[i]
		var fv models.FeatureVector

		if i > 0 {
			fv[IdxDelta] = ev.Timestamp - window[i-1].Timestamp
		}

		switch {
		case ev.EventType.IsClick():
			fv[IdxClick] = 1
		case ev.EventType.IsKey():
			fv[IdxKey] = 1
		}

		switch p := ev.Payload.(type) {
		case models.PointerPayload:
			x, y := p.Position()
			fv[IdxX] = x / ScreenWidth
			fv[IdxY] = y / ScreenHeight
		case models.KeyPayload:
			fv[IdxKeyCode] = float64(p.KeyCode) / KeyCodeRange
		}

		seq[i] = fv
	}
	return seq
}

// Matrix returns seq as a [][]float64 view suitable for model input.
func Matrix(seq []models.FeatureVector) [][]float64 {
	out := make([][]float64, len(seq))
	for i := range seq {
		row := make([]float64, models.FeatureWidth)
		copy(row, seq[i][:])
		out[i] = row
	}
	return out
}
