// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is built once and shared; it caches struct
// metadata so repeated validation of ingest batches stays cheap.
//
// # Custom Tags
//
//   - event_type: one of move, click_down, click_up, scroll, key_down, key_up
//   - device_id: no control characters, no leading or trailing whitespace
//   - finite: float fields must not be NaN or ±Inf
//
// Field names in errors are the JSON names, with the path into nested
// slices preserved:
//
//	events[2].event_type must be one of: move, click_down, click_up, scroll, key_down, key_up
//
// # Usage
//
//	var req models.IngestRequest
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
//
// # Thread Safety
//
// GetValidator and ValidateStruct are safe for concurrent use.
package validation
