// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package services

import (
	"context"
	"fmt"
	"time"
)

// Component has a Start/Shutdown lifecycle, such as the NATS ingest
// components built in cmd/server.
type Component interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
}

// ComponentService adapts a Component to suture's Serve pattern. A failed
// Start is returned so suture restarts the service with backoff.
type ComponentService struct {
	component       Component
	name            string
	shutdownTimeout time.Duration
}

// NewComponentService wraps component under name.
func NewComponentService(name string, component Component, shutdownTimeout time.Duration) *ComponentService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &ComponentService{component: component, name: name, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (s *ComponentService) Serve(ctx context.Context) error {
	if err := s.component.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.component.Shutdown(shutdownCtx)

	return ctx.Err()
}

func (s *ComponentService) String() string {
	return s.name
}
