// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

//go:build nats

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/logging"
)

// Components owns the NATS side of the process: the optional embedded
// server, the batch subscriber, the score publisher and the router.
type Components struct {
	settings  Settings
	ingester  Ingester
	logger    watermill.LoggerAdapter
	server    *EmbeddedServer
	sub       message.Subscriber
	publisher *ScorePublisher

	mu     sync.Mutex
	router *Router
}

// NewComponents starts the embedded server (if configured) and connects
// the subscriber and publisher. Call Start to begin consuming.
func NewComponents(cfg *config.NATSConfig, ingester Ingester) (*Components, error) {
	settings, err := SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	c := &Components{
		settings: settings,
		ingester: ingester,
		logger:   NewLogger("nats"),
	}

	if settings.Embedded {
		srv, err := NewEmbeddedServer(&settings.Server)
		if err != nil {
			return nil, err
		}
		c.server = srv
		settings.Subscriber.URL = srv.ClientURL()
		settings.Publisher.URL = srv.ClientURL()
		c.settings = settings
		logging.Info().Str("url", srv.ClientURL()).Msg("Embedded NATS server started")
	}

	c.sub, err = NewNATSSubscriber(&settings.Subscriber, c.logger)
	if err != nil {
		c.Close(context.Background())
		return nil, err
	}

	if settings.PublishResults {
		pub, err := NewNATSPublisher(&settings.Publisher, c.logger)
		if err != nil {
			c.Close(context.Background())
			return nil, err
		}
		c.publisher, err = NewScorePublisher(pub, settings.ResultSubject, settings.CircuitBreaker)
		if err != nil {
			_ = pub.Close()
			c.Close(context.Background())
			return nil, err
		}
	}

	return c, nil
}

// ScorePublisher returns the result publisher, or nil when publishing is
// disabled.
func (c *Components) ScorePublisher() *ScorePublisher {
	if c == nil {
		return nil
	}
	return c.publisher
}

// Start builds a fresh router and runs it until ctx ends. It returns once
// the ingest handler is subscribed.
func (c *Components) Start(ctx context.Context) error {
	var pub ResultPublisher
	if c.publisher != nil {
		pub = c.publisher
	}

	router, err := NewRouter(c.settings.Router, c.logger)
	if err != nil {
		return err
	}
	router.AddIngestHandler(c.settings.BatchSubject, c.sub, NewIngestHandler(c.ingester, pub))

	runErr := make(chan error, 1)
	go func() {
		runErr <- router.Run(ctx)
	}()

	select {
	case <-router.Running():
	case err := <-runErr:
		if err == nil {
			err = errors.New("router exited before running")
		}
		return fmt.Errorf("start NATS router: %w", err)
	case <-ctx.Done():
		_ = router.Close()
		return ctx.Err()
	}

	c.mu.Lock()
	c.router = router
	c.mu.Unlock()

	logging.Info().
		Str("subject", c.settings.BatchSubject).
		Str("durable", c.settings.Subscriber.DurableName).
		Msg("NATS batch ingest running")
	return nil
}

// Shutdown stops the router. Connections stay open so Start can run again.
func (c *Components) Shutdown(_ context.Context) {
	c.mu.Lock()
	router := c.router
	c.router = nil
	c.mu.Unlock()

	if router == nil {
		return
	}
	if err := router.Close(); err != nil {
		logging.Warn().Err(err).Msg("NATS router close failed")
	}
}

// Health fails when the router is not consuming or the embedded server is down.
func (c *Components) Health(_ context.Context) error {
	c.mu.Lock()
	router := c.router
	c.mu.Unlock()

	if router == nil || !router.IsRunning() {
		return errors.New("NATS router not running")
	}
	if c.server != nil && !c.server.IsRunning() {
		return errors.New("embedded NATS server not running")
	}
	return nil
}

// Close releases connections and stops the embedded server.
func (c *Components) Close(ctx context.Context) {
	c.Shutdown(ctx)

	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Score publisher close failed")
		}
	}
	if c.sub != nil {
		if err := c.sub.Close(); err != nil {
			logging.Warn().Err(err).Msg("Batch subscriber close failed")
		}
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Embedded NATS server shutdown failed")
		}
	}
}
