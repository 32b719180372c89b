// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"math"
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/cadence/internal/models"
)

func TestIngestBatchScores(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/km/batches", moveBatch("ws-1", 0, 50), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result models.ScoreResult
	resp := decodeResponse(t, rec, &result)
	if resp.Status != "success" {
		t.Errorf("status = %q", resp.Status)
	}
	if result.Loss == nil {
		t.Error("loss should be set")
	}
	if math.IsNaN(result.Score) || result.Score < 0 {
		t.Errorf("score = %v", result.Score)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestIngestBatchEmptyDeviceIsNeutral(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/km/batches",
		map[string]interface{}{"device_id": "ws-empty", "events": []interface{}{}}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"data":{"anomaly":false,"score":0,"loss":null}`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestIngestBatchErrors(t *testing.T) {
	tests := []struct {
		name       string
		opts       []serverOption
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed JSON",
			body:       `{"device_id": "ws-1", "events": [`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "missing device",
			body:       map[string]interface{}{"events": []interface{}{}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name: "unknown event type",
			body: map[string]interface{}{"device_id": "ws-1", "events": []interface{}{
				map[string]interface{}{"timestamp": 1.0, "event_type": "hover", "data": map[string]interface{}{}},
			}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name: "non-numeric coordinate",
			body: map[string]interface{}{"device_id": "ws-1", "events": []interface{}{
				map[string]interface{}{"timestamp": 1.0, "event_type": "move", "data": map[string]interface{}{"x": "left"}},
			}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "body too large",
			opts:       []serverOption{withMaxBody(64)},
			body:       moveBatch("ws-1", 0, 20),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "PAYLOAD_TOO_LARGE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.opts...)
			rec := s.do(t, http.MethodPost, "/api/v1/km/batches", tt.body, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			resp := decodeResponse(t, rec, nil)
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestIngestBatchValidationDetails(t *testing.T) {
	s := newTestServer(t)
	body := moveBatch("ws-1", 0, 3)
	body["events"].([]map[string]interface{})[2]["event_type"] = "swipe"

	rec := s.do(t, http.MethodPost, "/api/v1/km/batches", body, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"field":"events[2].event_type"`) {
		t.Errorf("details do not name the field: %s", rec.Body.String())
	}

	// Nothing was stored for the rejected batch.
	rec = s.do(t, http.MethodGet, "/api/v1/km/anomalies?device_id=ws-1", nil, "")
	var points []models.AnomalyPoint
	decodeResponse(t, rec, &points)
	if len(points) != 0 {
		t.Errorf("points = %v", points)
	}
}

func TestIngestBatchPublishesScore(t *testing.T) {
	s := newTestServer(t)
	pub := &recordingPublisher{err: errUnavailable}
	s.api.SetScorePublisher(pub)

	// A failing publisher does not fail the request.
	rec := s.do(t, http.MethodPost, "/api/v1/km/batches", moveBatch("ws-p", 0, 10), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// Neutral results are not published.
	s.do(t, http.MethodPost, "/api/v1/km/batches",
		map[string]interface{}{"device_id": "ws-none", "events": []interface{}{}}, "")

	if len(pub.devices) != 1 || pub.devices[0] != "ws-p" {
		t.Errorf("published for %v", pub.devices)
	}
}

func TestDeviceAnomalies(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		rec := s.do(t, http.MethodPost, "/api/v1/km/batches", moveBatch("ws-h", float64(i*100), 10), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("ingest %d: %d", i, rec.Code)
		}
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantTimes  []float64
	}{
		{"all", "device_id=ws-h", http.StatusOK, []float64{9, 109, 209}},
		{"inclusive range", "device_id=ws-h&start=9&end=109", http.StatusOK, []float64{9, 109}},
		{"limit", "device_id=ws-h&limit=1", http.StatusOK, []float64{209}},
		{"unknown device", "device_id=nobody", http.StatusOK, []float64{}},
		{"missing device", "", http.StatusBadRequest, nil},
		{"bad start", "device_id=ws-h&start=abc", http.StatusBadRequest, nil},
		{"start after end", "device_id=ws-h&start=10&end=5", http.StatusBadRequest, nil},
		{"negative limit", "device_id=ws-h&limit=-1", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/v1/km/anomalies?"+tt.query, nil, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var points []models.AnomalyPoint
			resp := decodeResponse(t, rec, &points)
			if len(points) != len(tt.wantTimes) {
				t.Fatalf("points = %v, want timestamps %v", points, tt.wantTimes)
			}
			for i, p := range points {
				if p.Timestamp != tt.wantTimes[i] {
					t.Errorf("points[%d].Timestamp = %v, want %v", i, p.Timestamp, tt.wantTimes[i])
				}
			}
			if resp.Metadata.Count == nil || *resp.Metadata.Count != len(tt.wantTimes) {
				t.Errorf("metadata count = %v", resp.Metadata.Count)
			}
		})
	}
}

func TestDashboardAnomalies(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/km/batches", moveBatch("ws-a", 0, 5), "")
	s.do(t, http.MethodPost, "/api/v1/km/batches", moveBatch("ws-b", 0, 5), "")

	rec := s.do(t, http.MethodGet, "/api/v1/dashboard/km/anomalies", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var records []models.AnomalyRecord
	decodeResponse(t, rec, &records)
	if len(records) != 2 || records[0].DeviceID != "ws-a" || records[1].DeviceID != "ws-b" {
		t.Errorf("records = %+v", records)
	}
	if records[0].Loss == nil {
		t.Error("dashboard records should carry the loss")
	}

	rec = s.do(t, http.MethodGet, "/api/v1/dashboard/km/anomalies?device_id=ws-b", nil, "")
	records = nil
	decodeResponse(t, rec, &records)
	if len(records) != 1 {
		t.Errorf("filtered records = %d", len(records))
	}
}

func TestDevicesAndScore(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/km/batches", moveBatch("ws-d", 0, 30), "")

	rec := s.do(t, http.MethodGet, "/api/v1/km/devices", nil, "")
	var devices []models.DeviceInfo
	decodeResponse(t, rec, &devices)
	if len(devices) != 1 || devices[0].DeviceID != "ws-d" || devices[0].Batches != 1 {
		t.Errorf("devices = %+v", devices)
	}

	steps := s.engine.Trainer().Steps()
	rec = s.do(t, http.MethodGet, "/api/v1/km/devices/ws-d/score", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var result models.ScoreResult
	decodeResponse(t, rec, &result)
	if result.Loss != nil {
		t.Error("evaluation should not report a loss")
	}
	if s.engine.Trainer().Steps() != steps {
		t.Error("score endpoint trained the model")
	}

	// Querying an unknown device does not register it.
	s.do(t, http.MethodGet, "/api/v1/km/devices/ghost/score", nil, "")
	if _, ok := s.engine.Registry().Lookup("ghost"); ok {
		t.Error("query registered a device")
	}
}
