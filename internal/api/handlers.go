// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/cadence/internal/auth"
	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/detection"
	"github.com/tomtom215/cadence/internal/models"
)

// Pinger reports database reachability. Satisfied by *database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ScorePublisher forwards scored batches to other consumers. The NATS
// publisher implements it; a nil publisher is skipped.
type ScorePublisher interface {
	PublishScore(ctx context.Context, deviceID string, result models.ScoreResult) error
}

// HealthCheck reports whether an optional component is usable.
type HealthCheck func(ctx context.Context) error

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	engine    *detection.Engine
	db        Pinger
	config    *config.Config
	auth      *auth.Middleware
	version   string
	startTime time.Time

	mu        sync.RWMutex
	publisher ScorePublisher
	checks    map[string]HealthCheck
}

// NewHandler creates the API handler. authMW may be nil when
// authentication is disabled.
func NewHandler(engine *detection.Engine, db Pinger, cfg *config.Config, authMW *auth.Middleware, version string) *Handler {
	if authMW == nil {
		authMW = auth.NewMiddleware(nil)
	}
	return &Handler{
		engine:    engine,
		db:        db,
		config:    cfg,
		auth:      authMW,
		version:   version,
		startTime: time.Now(),
		checks:    make(map[string]HealthCheck),
	}
}

// SetScorePublisher installs a publisher for scored batches.
func (h *Handler) SetScorePublisher(p ScorePublisher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publisher = p
}

// AddHealthCheck registers a component checked by the readiness probe.
func (h *Handler) AddHealthCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

func (h *Handler) scorePublisher() ScorePublisher {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.publisher
}

func (h *Handler) healthChecks() map[string]HealthCheck {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]HealthCheck, len(h.checks))
	for name, check := range h.checks {
		out[name] = check
	}
	return out
}
