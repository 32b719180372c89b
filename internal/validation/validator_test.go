// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package validation

import (
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/tomtom215/cadence/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

func ts(v float64) *float64 { return &v }

func validBatch() models.IngestRequest {
	return models.IngestRequest{
		DeviceID: "ws-01",
		Events: []models.EventInput{
			{Timestamp: ts(1), EventType: "move", Data: map[string]interface{}{"x": 10.0, "y": 20.0}},
			{Timestamp: ts(2), EventType: "key_down", Data: map[string]interface{}{"key_code": 65.0}},
		},
	}
}

func TestValidateStruct_IngestRequest(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *models.IngestRequest)
		wantField string
		wantTag   string
	}{
		{name: "valid", mutate: func(r *models.IngestRequest) {}},
		{name: "empty events allowed", mutate: func(r *models.IngestRequest) { r.Events = nil }},
		{
			name:      "missing device",
			mutate:    func(r *models.IngestRequest) { r.DeviceID = "" },
			wantField: "device_id",
			wantTag:   "required",
		},
		{
			name:      "device too long",
			mutate:    func(r *models.IngestRequest) { r.DeviceID = strings.Repeat("d", 256) },
			wantField: "device_id",
			wantTag:   "max",
		},
		{
			name:      "device with newline",
			mutate:    func(r *models.IngestRequest) { r.DeviceID = "ws\n01" },
			wantField: "device_id",
			wantTag:   "device_id",
		},
		{
			name:      "device with padding",
			mutate:    func(r *models.IngestRequest) { r.DeviceID = " ws-01" },
			wantField: "device_id",
			wantTag:   "device_id",
		},
		{
			name:      "unknown event type",
			mutate:    func(r *models.IngestRequest) { r.Events[1].EventType = "swipe" },
			wantField: "events[1].event_type",
			wantTag:   "event_type",
		},
		{
			name:      "missing timestamp",
			mutate:    func(r *models.IngestRequest) { r.Events[0].Timestamp = nil },
			wantField: "events[0].timestamp",
			wantTag:   "required",
		},
		{
			name:      "infinite timestamp",
			mutate:    func(r *models.IngestRequest) { r.Events[0].Timestamp = ts(math.Inf(1)) },
			wantField: "events[0].timestamp",
			wantTag:   "finite",
		},
		{
			name:      "missing data",
			mutate:    func(r *models.IngestRequest) { r.Events[0].Data = nil },
			wantField: "events[0].data",
			wantTag:   "required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validBatch()
			tt.mutate(&req)

			verr := ValidateStruct(&req)
			if tt.wantTag == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatalf("ValidateStruct() expected %s error on %s", tt.wantTag, tt.wantField)
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", errs[0].Tag(), tt.wantTag)
			}
		})
	}
}

func TestTranslateMessages(t *testing.T) {
	req := validBatch()
	req.Events[0].EventType = "drag"

	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected error")
	}
	want := "events[0].event_type must be one of: move, click_down, click_up, scroll, key_down, key_up"
	if verr.Error() != want {
		t.Errorf("Error() = %q, want %q", verr.Error(), want)
	}

	req = validBatch()
	req.DeviceID = strings.Repeat("d", 300)
	verr = ValidateStruct(&req)
	if verr == nil || verr.Error() != "device_id must be at most 255 characters" {
		t.Errorf("Error() = %v", verr)
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		req := validBatch()
		req.DeviceID = ""
		apiErr := ValidateStruct(&req).ToAPIError()
		if apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("Code = %q", apiErr.Code)
		}
		if apiErr.Details["field"] != "device_id" {
			t.Errorf("Details[field] = %v", apiErr.Details["field"])
		}
	})

	t.Run("multiple", func(t *testing.T) {
		req := validBatch()
		req.DeviceID = ""
		req.Events[0].EventType = ""
		apiErr := ValidateStruct(&req).ToAPIError()
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok || len(fields) != 2 {
			t.Fatalf("Details[fields] = %v", apiErr.Details["fields"])
		}
		if !strings.Contains(apiErr.Message, "; ") {
			t.Errorf("Message should join errors: %q", apiErr.Message)
		}
	})

	t.Run("empty", func(t *testing.T) {
		apiErr := (&RequestValidationError{}).ToAPIError()
		if apiErr.Message != "Validation failed" {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})
}

func TestValidateStruct_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validBatch()
			if i%2 == 0 {
				req.Events[0].EventType = "bogus"
				if ValidateStruct(&req) == nil {
					t.Error("expected error")
				}
				return
			}
			if verr := ValidateStruct(&req); verr != nil {
				t.Errorf("unexpected error: %v", verr)
			}
		}(i)
	}
	wg.Wait()
}
