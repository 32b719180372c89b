// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// IngestHandlerName is the router handler name for batch ingest.
const IngestHandlerName = "cadence-batch-ingest"

// RouterConfig holds configuration for the Watermill Router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	// Retry configuration for transient (storage, rate limit) failures.
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// ThrottlePerSecond caps handled messages per second (0 = disabled).
	ThrottlePerSecond int64
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 200 * time.Millisecond,
		RetryMaxInterval:     5 * time.Second,
		RetryMultiplier:      2.0,
		ThrottlePerSecond:    0,
	}
}

// Router wraps the Watermill Router with the ingest middleware stack.
type Router struct {
	router *message.Router
	logger watermill.LoggerAdapter
}

// NewRouter creates a Watermill Router with, outer to inner:
//   - Recoverer: panics become handler errors
//   - Retry: exponential backoff before the message is nacked
//   - Throttle: optional rate cap
func NewRouter(cfg RouterConfig, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	wmRouter.AddMiddleware(middleware.Recoverer)

	if cfg.RetryMaxRetries > 0 {
		retry := middleware.Retry{
			MaxRetries:      cfg.RetryMaxRetries,
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
			Multiplier:      cfg.RetryMultiplier,
			Logger:          logger,
		}
		wmRouter.AddMiddleware(retry.Middleware)
	}

	if cfg.ThrottlePerSecond > 0 {
		throttle := middleware.NewThrottle(cfg.ThrottlePerSecond, time.Second)
		wmRouter.AddMiddleware(throttle.Middleware)
	}

	return &Router{router: wmRouter, logger: logger}, nil
}

// AddIngestHandler subscribes h to topic on subscriber.
func (r *Router) AddIngestHandler(topic string, subscriber message.Subscriber, h *IngestHandler) {
	r.router.AddConsumerHandler(IngestHandlerName, topic, subscriber, h.Handle)
}

// Run starts the router and blocks until ctx is canceled or Close is called.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel that closes once all handlers are subscribed.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// IsRunning reports whether the router is processing messages.
func (r *Router) IsRunning() bool {
	return r.router.IsRunning()
}

// Close stops the router, waiting up to CloseTimeout for in-flight handlers.
func (r *Router) Close() error {
	return r.router.Close()
}
