// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

//go:build !nats

package eventprocessor

import (
	"context"

	"github.com/tomtom215/cadence/internal/config"
)

// Components is a stub for non-NATS builds.
type Components struct{}

// NewComponents returns ErrNATSNotEnabled in non-NATS builds.
func NewComponents(_ *config.NATSConfig, _ Ingester) (*Components, error) {
	return nil, ErrNATSNotEnabled
}

// ScorePublisher returns nil for non-NATS builds.
func (c *Components) ScorePublisher() *ScorePublisher { return nil }

// Start returns ErrNATSNotEnabled for non-NATS builds.
func (c *Components) Start(_ context.Context) error { return ErrNATSNotEnabled }

// Shutdown is a no-op stub for non-NATS builds.
func (c *Components) Shutdown(_ context.Context) {}

// Health returns ErrNATSNotEnabled for non-NATS builds.
func (c *Components) Health(_ context.Context) error { return ErrNATSNotEnabled }

// Close is a no-op stub for non-NATS builds.
func (c *Components) Close(_ context.Context) {}
