// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// MarshalPayload encodes a payload for the raw event log.
func MarshalPayload(p EventPayload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// UnmarshalPayload decodes a stored payload back into the variant that
// matches eventType.
func UnmarshalPayload(eventType EventType, data []byte) (EventPayload, error) {
	switch {
	case eventType == EventMove:
		var p MovePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode move payload: %w", err)
		}
		return p, nil
	case eventType.IsClick():
		var p ClickPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode click payload: %w", err)
		}
		return p, nil
	case eventType == EventScroll:
		var p ScrollPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode scroll payload: %w", err)
		}
		return p, nil
	case eventType.IsKey():
		var p KeyPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode key payload: %w", err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown event type %q", eventType)
}
