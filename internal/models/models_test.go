// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package models

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func TestParseEventType(t *testing.T) {
	for _, et := range EventTypes {
		got, err := ParseEventType(string(et))
		if err != nil {
			t.Errorf("ParseEventType(%q) error = %v", et, err)
		}
		if got != et {
			t.Errorf("ParseEventType(%q) = %q", et, got)
		}
	}

	for _, bad := range []string{"", "MOVE", "click", "keypress", "scroll "} {
		if _, err := ParseEventType(bad); err == nil {
			t.Errorf("ParseEventType(%q) expected error", bad)
		}
	}
}

func TestEventTypeClassification(t *testing.T) {
	tests := []struct {
		et    EventType
		click bool
		key   bool
	}{
		{EventMove, false, false},
		{EventScroll, false, false},
		{EventClickDown, true, false},
		{EventClickUp, true, false},
		{EventKeyDown, false, true},
		{EventKeyUp, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.et), func(t *testing.T) {
			if tt.et.IsClick() != tt.click {
				t.Errorf("IsClick() = %v, want %v", tt.et.IsClick(), tt.click)
			}
			if tt.et.IsKey() != tt.key {
				t.Errorf("IsKey() = %v, want %v", tt.et.IsKey(), tt.key)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name      string
		eventType EventType
		data      map[string]interface{}
		want      EventPayload
		wantErr   bool
	}{
		{
			name:      "move with position",
			eventType: EventMove,
			data:      map[string]interface{}{"x": 100.0, "y": 50.0},
			want:      MovePayload{X: 100, Y: 50},
		},
		{
			name:      "move missing fields defaults to zero",
			eventType: EventMove,
			data:      map[string]interface{}{},
			want:      MovePayload{},
		},
		{
			name:      "click with string button",
			eventType: EventClickDown,
			data:      map[string]interface{}{"x": 10.0, "y": 20.0, "button": "Button.left"},
			want:      ClickPayload{X: 10, Y: 20, Button: "Button.left"},
		},
		{
			name:      "click with numeric button",
			eventType: EventClickUp,
			data:      map[string]interface{}{"x": 1.0, "y": 2.0, "button": 1.0},
			want:      ClickPayload{X: 1, Y: 2, Button: "1"},
		},
		{
			name:      "scroll",
			eventType: EventScroll,
			data:      map[string]interface{}{"x": 5.0, "y": 6.0, "dx": 0.0, "dy": -1.0},
			want:      ScrollPayload{X: 5, Y: 6, DY: -1},
		},
		{
			name:      "key ignores position",
			eventType: EventKeyDown,
			data:      map[string]interface{}{"key_code": 65.0, "x": 99.0},
			want:      KeyPayload{KeyCode: 65},
		},
		{
			name:      "json number accepted",
			eventType: EventKeyUp,
			data:      map[string]interface{}{"key_code": json.Number("13")},
			want:      KeyPayload{KeyCode: 13},
		},
		{
			name:      "string coordinate rejected",
			eventType: EventMove,
			data:      map[string]interface{}{"x": "abc"},
			wantErr:   true,
		},
		{
			name:      "object key code rejected",
			eventType: EventKeyDown,
			data:      map[string]interface{}{"key_code": map[string]interface{}{}},
			wantErr:   true,
		},
		{
			name:      "largest key code accepted",
			eventType: EventKeyDown,
			data:      map[string]interface{}{"key_code": float64(MaxKeyCode)},
			want:      KeyPayload{KeyCode: MaxKeyCode},
		},
		{
			name:      "fractional key code rejected",
			eventType: EventKeyDown,
			data:      map[string]interface{}{"key_code": 65.5},
			wantErr:   true,
		},
		{
			name:      "negative key code rejected",
			eventType: EventKeyUp,
			data:      map[string]interface{}{"key_code": -1.0},
			wantErr:   true,
		},
		{
			name:      "key code beyond int range rejected",
			eventType: EventKeyDown,
			data:      map[string]interface{}{"key_code": 1e20},
			wantErr:   true,
		},
		{
			name:      "unknown type rejected",
			eventType: EventType("drag"),
			data:      map[string]interface{}{},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload(tt.eventType, tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got payload %#v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodePayload() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodePayloadFieldError(t *testing.T) {
	_, err := DecodePayload(EventScroll, map[string]interface{}{"dy": true})
	var fieldErr *PayloadFieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected *PayloadFieldError, got %T (%v)", err, err)
	}
	if fieldErr.Field != "dy" {
		t.Errorf("Field = %q, want dy", fieldErr.Field)
	}
}

func TestDecodePayloadKeyCodeFieldError(t *testing.T) {
	_, err := DecodePayload(EventKeyDown, map[string]interface{}{"key_code": MaxKeyCode + 1})
	var fieldErr *PayloadFieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected *PayloadFieldError, got %T (%v)", err, err)
	}
	if fieldErr.Field != "key_code" {
		t.Errorf("Field = %q, want key_code", fieldErr.Field)
	}
}

func TestPayloadRoundTripThroughStorageEncoding(t *testing.T) {
	payloads := map[EventType]EventPayload{
		EventMove:      MovePayload{X: 3, Y: 4},
		EventClickDown: ClickPayload{X: 1, Y: 2, Button: "right"},
		EventScroll:    ScrollPayload{X: 7, Y: 8, DX: 1, DY: -2},
		EventKeyUp:     KeyPayload{KeyCode: 32},
	}
	for et, p := range payloads {
		raw, err := MarshalPayload(p)
		if err != nil {
			t.Fatalf("MarshalPayload(%s): %v", et, err)
		}
		got, err := UnmarshalPayload(et, raw)
		if err != nil {
			t.Fatalf("UnmarshalPayload(%s): %v", et, err)
		}
		if got != p {
			t.Errorf("%s: got %#v, want %#v", et, got, p)
		}
	}
}

func TestPointerPayloadImplementations(t *testing.T) {
	var _ PointerPayload = MovePayload{}
	var _ PointerPayload = ClickPayload{}
	var _ PointerPayload = ScrollPayload{}

	if _, ok := EventPayload(KeyPayload{}).(PointerPayload); ok {
		t.Error("KeyPayload must not carry a pointer position")
	}
}

func TestNeutralResult(t *testing.T) {
	r := NeutralResult()
	if r.Anomaly || r.Score != 0 || r.Loss != nil {
		t.Errorf("NeutralResult() = %+v", r)
	}

	body, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"anomaly":false,"score":0,"loss":null}` {
		t.Errorf("json = %s", body)
	}
}
