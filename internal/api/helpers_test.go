// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cadence/internal/auth"
	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/database"
	"github.com/tomtom215/cadence/internal/detection"
	"github.com/tomtom215/cadence/internal/model"
	"github.com/tomtom215/cadence/internal/models"
)

const testJWTSecret = "api_test_secret_that_is_definitely_long_enough"

type testServer struct {
	handler http.Handler
	api     *Handler
	engine  *detection.Engine
	jwt     *auth.JWTManager
}

type serverOption func(*config.Config)

func withJWT(c *config.Config) {
	c.Security.AuthMode = "jwt"
	c.Security.JWTSecret = testJWTSecret
}

func withRateLimit(reqs int) serverOption {
	return func(c *config.Config) {
		c.Security.RateLimitDisabled = false
		c.Security.RateLimitReqs = reqs
	}
}

func withMaxBody(n int64) serverOption {
	return func(c *config.Config) { c.Server.MaxBodyBytes = n }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.Security.AuthMode = "none"
	cfg.Security.JWTIssuer = "cadence"
	cfg.Security.RateLimitDisabled = true
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := database.New(&config.DatabaseConfig{
		Path:                   database.MemoryPath,
		MaxMemory:              "256MB",
		Threads:                2,
		PreserveInsertionOrder: true,
	})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	trainer, err := model.NewTrainer(model.Config{
		InputSize:  models.FeatureWidth,
		HiddenSize: 6,
		LatentSize: 3,
		NumHeads:   1,
		Seed:       5,
	})
	if err != nil {
		t.Fatal(err)
	}
	engine, err := detection.NewEngine(detection.DefaultEngineConfig(),
		detection.NewDuckDBStore(db.Conn()), trainer, detection.NewDeviceRegistry(0, 1))
	if err != nil {
		t.Fatal(err)
	}

	var jwtManager *auth.JWTManager
	if cfg.Security.AuthMode == "jwt" {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			t.Fatal(err)
		}
	}
	authMW := auth.NewMiddleware(jwtManager)

	h := NewHandler(engine, db, cfg, authMW, "test")
	router := NewRouter(h, NewChiMiddleware(ChiMiddlewareConfigFromSecurity(&cfg.Security)), authMW)
	return &testServer{handler: router.Setup(), api: h, engine: engine, jwt: jwtManager}
}

func (s *testServer) token(t *testing.T, subject, scope string) string {
	t.Helper()
	tok, err := s.jwt.GenerateToken(subject, scope, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, target string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// decodeResponse unmarshals the envelope and, when data is non-nil, its
// data field.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
	}
	if data != nil {
		var raw struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
			t.Fatal(err)
		}
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("invalid data %s: %v", raw.Data, err)
		}
	}
	return resp
}

func moveBatch(deviceID string, start float64, n int) map[string]interface{} {
	events := make([]map[string]interface{}, n)
	for i := range events {
		events[i] = map[string]interface{}{
			"timestamp":  start + float64(i),
			"event_type": "move",
			"data":       map[string]interface{}{"x": float64(i * 10), "y": 540.0},
		}
	}
	return map[string]interface{}{"device_id": deviceID, "events": events}
}

type recordingPublisher struct {
	mu      sync.Mutex
	devices []string
	err     error
}

func (p *recordingPublisher) PublishScore(_ context.Context, deviceID string, _ models.ScoreResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices = append(p.devices, deviceID)
	return p.err
}

var errUnavailable = errors.New("unavailable")
