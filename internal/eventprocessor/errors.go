// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import "errors"

// ErrNATSNotEnabled is returned when NATS features are used without the nats build tag.
var ErrNATSNotEnabled = errors.New("NATS event processing not enabled (build with -tags nats)")

// ErrNilPublisher is returned when a ScorePublisher is built without a transport.
var ErrNilPublisher = errors.New("publisher cannot be nil")

// ErrInvalidConfig is returned when configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrPublisherClosed is returned by PublishScore after Close.
var ErrPublisherClosed = errors.New("publisher closed")
