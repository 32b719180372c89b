// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// captureGlobal swaps the global logger for one writing to a buffer.
func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	prevLogger := Logger()
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogger(prevLogger)
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("no log output")
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", line, err)
	}
	return m
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInit_JSONAndLevel(t *testing.T) {
	prevLogger := Logger()
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogger(prevLogger)
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})

	Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	Warn().Str("k", "v").Msg("shown")
	m := decodeLine(t, &buf)
	if m["message"] != "shown" || m["k"] != "v" || m["level"] != "warn" {
		t.Errorf("unexpected entry: %v", m)
	}
	if _, ok := m["time"]; !ok {
		t.Error("entry should carry a time field")
	}
}

func TestInit_Console(t *testing.T) {
	prevLogger := Logger()
	t.Cleanup(func() { SetLogger(prevLogger) })

	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "console", Output: &buf})
	Info().Msg("console line")

	if !strings.Contains(buf.String(), "console line") {
		t.Errorf("console output missing message: %q", buf.String())
	}
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Error("console format should not emit JSON")
	}
}

func TestErr(t *testing.T) {
	buf := captureGlobal(t)
	Err(errors.New("boom")).Msg("failed")

	m := decodeLine(t, buf)
	if m["error"] != "boom" || m["level"] != "error" {
		t.Errorf("unexpected entry: %v", m)
	}
}

func TestWithComponent(t *testing.T) {
	buf := captureGlobal(t)
	l := WithComponent("engine")
	l.Info().Msg("hello")

	if m := decodeLine(t, buf); m["component"] != "engine" {
		t.Errorf("component = %v", m["component"])
	}
}

func TestCtx(t *testing.T) {
	buf := captureGlobal(t)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithDeviceID(ctx, "ws-01")
	Ctx(ctx).Info().Msg("scored")

	m := decodeLine(t, buf)
	if m["request_id"] != "req-1" {
		t.Errorf("request_id = %v", m["request_id"])
	}
	if m["device_id"] != "ws-01" {
		t.Errorf("device_id = %v", m["device_id"])
	}
	if _, ok := m["correlation_id"]; ok {
		t.Error("correlation_id should be absent")
	}
}

func TestCtx_CorrelationID(t *testing.T) {
	buf := captureGlobal(t)
	ctx := ContextWithCorrelationID(context.Background(), "msg-9")
	if got := CorrelationIDFromContext(ctx); got != "msg-9" {
		t.Fatalf("CorrelationIDFromContext() = %q", got)
	}

	Ctx(ctx).Info().Msg("consumed")
	if m := decodeLine(t, buf); m["correlation_id"] != "msg-9" {
		t.Errorf("correlation_id = %v", m["correlation_id"])
	}
}

func TestCtx_Empty(t *testing.T) {
	buf := captureGlobal(t)
	Ctx(context.Background()).Info().Msg("bare")

	m := decodeLine(t, buf)
	if _, ok := m["request_id"]; ok {
		t.Error("request_id should be absent")
	}
	if _, ok := m["device_id"]; ok {
		t.Error("device_id should be absent")
	}
}

func TestContextWithLogger(t *testing.T) {
	var buf bytes.Buffer
	custom := zerolog.New(&buf).With().Str("custom", "yes").Logger()
	ctx := ContextWithLogger(context.Background(), custom)

	Ctx(ctx).Info().Msg("via context")
	if m := decodeLine(t, &buf); m["custom"] != "yes" {
		t.Errorf("custom = %v", m["custom"])
	}
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if len(a) != 36 {
		t.Errorf("len = %d, want 36", len(a))
	}
	if a == b {
		t.Error("request IDs should be unique")
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("empty context should have no request ID")
	}
}
