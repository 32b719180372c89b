// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package models

import (
	"fmt"
	"math"
	"strconv"
)

// EventType is the kind of a captured interaction event.
type EventType string

// Known event types emitted by capture agents.
const (
	EventMove      EventType = "move"
	EventClickDown EventType = "click_down"
	EventClickUp   EventType = "click_up"
	EventScroll    EventType = "scroll"
	EventKeyDown   EventType = "key_down"
	EventKeyUp     EventType = "key_up"
)

// EventTypes lists every accepted event type in a stable order.
var EventTypes = []EventType{
	EventMove, EventClickDown, EventClickUp, EventScroll, EventKeyDown, EventKeyUp,
}

// ParseEventType returns the EventType for s or an error if s is not one of
// the six known tags.
func ParseEventType(s string) (EventType, error) {
	et := EventType(s)
	if et.Valid() {
		return et, nil
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventMove, EventClickDown, EventClickUp, EventScroll, EventKeyDown, EventKeyUp:
		return true
	}
	return false
}

// IsClick reports whether t is a click_down or click_up event.
func (t EventType) IsClick() bool {
	return t == EventClickDown || t == EventClickUp
}

// IsKey reports whether t is a key_down or key_up event.
func (t EventType) IsKey() bool {
	return t == EventKeyDown || t == EventKeyUp
}

// EventPayload is the type-specific part of a RawEvent. Exactly one of the
// concrete payload types below implements it for each EventType.
type EventPayload interface {
	// Kind returns the payload family, used when the payload is persisted.
	Kind() string
}

// PointerPayload is implemented by payloads that carry a screen position.
type PointerPayload interface {
	EventPayload
	Position() (x, y float64)
}

// MovePayload is the payload of a move event.
type MovePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClickPayload is the payload of click_down and click_up events.
type ClickPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button string  `json:"button,omitempty"`
}

// ScrollPayload is the payload of a scroll event.
type ScrollPayload struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// MaxKeyCode is the largest key code accepted from agents.
const MaxKeyCode = 0xFFFF

// KeyPayload is the payload of key_down and key_up events.
type KeyPayload struct {
	KeyCode int `json:"key_code"`
}

func (MovePayload) Kind() string   { return "move" }
func (ClickPayload) Kind() string  { return "click" }
func (ScrollPayload) Kind() string { return "scroll" }
func (KeyPayload) Kind() string    { return "key" }

func (p MovePayload) Position() (x, y float64)   { return p.X, p.Y }
func (p ClickPayload) Position() (x, y float64)  { return p.X, p.Y }
func (p ScrollPayload) Position() (x, y float64) { return p.X, p.Y }

// PayloadFieldError reports a payload field with an unusable value.
type PayloadFieldError struct {
	Field string
	Value interface{}
}

func (e *PayloadFieldError) Error() string {
	return fmt.Sprintf("field %q has invalid value %v", e.Field, e.Value)
}

// DecodePayload converts the loosely-typed wire map into the payload variant
// for eventType. Absent fields default to zero; present fields of the wrong
// type are rejected.
func DecodePayload(eventType EventType, data map[string]interface{}) (EventPayload, error) {
	switch {
	case eventType == EventMove:
		x, y, err := decodePosition(data)
		if err != nil {
			return nil, err
		}
		return MovePayload{X: x, Y: y}, nil

	case eventType.IsClick():
		x, y, err := decodePosition(data)
		if err != nil {
			return nil, err
		}
		button, err := stringField(data, "button")
		if err != nil {
			return nil, err
		}
		return ClickPayload{X: x, Y: y, Button: button}, nil

	case eventType == EventScroll:
		x, y, err := decodePosition(data)
		if err != nil {
			return nil, err
		}
		dx, err := numberField(data, "dx")
		if err != nil {
			return nil, err
		}
		dy, err := numberField(data, "dy")
		if err != nil {
			return nil, err
		}
		return ScrollPayload{X: x, Y: y, DX: dx, DY: dy}, nil

	case eventType.IsKey():
		code, err := numberField(data, "key_code")
		if err != nil {
			return nil, err
		}
		if code != math.Trunc(code) || code < 0 || code > MaxKeyCode {
			return nil, &PayloadFieldError{Field: "key_code", Value: data["key_code"]}
		}
		return KeyPayload{KeyCode: int(code)}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", eventType)
}

func decodePosition(data map[string]interface{}) (x, y float64, err error) {
	if x, err = numberField(data, "x"); err != nil {
		return 0, 0, err
	}
	if y, err = numberField(data, "y"); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func numberField(data map[string]interface{}, field string) (float64, error) {
	raw, ok := data[field]
	if !ok || raw == nil {
		return 0, nil
	}
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		if err != nil {
			return 0, &PayloadFieldError{Field: field, Value: raw}
		}
		v = f
	default:
		return 0, &PayloadFieldError{Field: field, Value: raw}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &PayloadFieldError{Field: field, Value: raw}
	}
	return v, nil
}

// stringField accepts strings and numbers, since agents report mouse buttons
// either by name or by index.
func stringField(data map[string]interface{}, field string) (string, error) {
	raw, ok := data[field]
	if !ok || raw == nil {
		return "", nil
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	}
	return "", &PayloadFieldError{Field: field, Value: raw}
}

// RawEvent is one validated, stored interaction event.
type RawEvent struct {
	ID        int64        `json:"id,omitempty"`
	DeviceID  string       `json:"device_id"`
	Timestamp float64      `json:"timestamp"`
	EventType EventType    `json:"event_type"`
	Payload   EventPayload `json:"data"`
}

// EventInput is one event as submitted by a capture agent, before decoding.
type EventInput struct {
	Timestamp *float64               `json:"timestamp" validate:"required,finite"`
	EventType string                 `json:"event_type" validate:"required,event_type"`
	Data      map[string]interface{} `json:"data" validate:"required"`
}

// IngestRequest is a per-device batch of events.
type IngestRequest struct {
	DeviceID string       `json:"device_id" validate:"required,max=255,device_id"`
	Events   []EventInput `json:"events" validate:"dive"`
}
