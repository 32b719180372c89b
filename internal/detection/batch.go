// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package detection

import (
	"errors"
	"fmt"

	"github.com/tomtom215/cadence/internal/models"
	"github.com/tomtom215/cadence/internal/validation"
)

// ValidateBatch checks req and decodes every event. It either returns all
// events, in submission order, or a *ValidationError and no events.
//
// maxEvents <= 0 disables the batch size check.
func ValidateBatch(req *models.IngestRequest, maxEvents int) ([]models.RawEvent, error) {
	if req == nil {
		return nil, newValidationError("", "batch is required")
	}

	if verr := validation.ValidateStruct(req); verr != nil {
		errs := verr.Errors()
		fields := make([]FieldError, len(errs))
		for i := range errs {
			fields[i] = FieldError{Field: errs[i].Field(), Message: errs[i].Error()}
		}
		return nil, &ValidationError{Fields: fields}
	}

	if maxEvents > 0 && len(req.Events) > maxEvents {
		return nil, newValidationError("events",
			fmt.Sprintf("events must contain at most %d items", maxEvents))
	}

	events := make([]models.RawEvent, len(req.Events))
	for i := range req.Events {
		in := &req.Events[i]
		eventType, err := models.ParseEventType(in.EventType)
		if err != nil {
			// Unreachable after struct validation, kept for callers that
			// build EventInput by hand.
			return nil, newValidationError(fmt.Sprintf("events[%d].event_type", i), err.Error())
		}

		payload, err := models.DecodePayload(eventType, in.Data)
		if err != nil {
			field := fmt.Sprintf("events[%d].data", i)
			var pfe *models.PayloadFieldError
			if errors.As(err, &pfe) {
				field += "." + pfe.Field
			}
			return nil, newValidationError(field, fmt.Sprintf("%s: %v", field, err))
		}

		events[i] = models.RawEvent{
			DeviceID:  req.DeviceID,
			Timestamp: *in.Timestamp,
			EventType: eventType,
			Payload:   payload,
		}
	}
	return events, nil
}
