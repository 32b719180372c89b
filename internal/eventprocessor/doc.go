// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package eventprocessor carries batch ingest over NATS JetStream.
//
// Capture agents that cannot reach the HTTP API directly publish one
// IngestRequest JSON document per message on the batch subject
// (default "cadence.batches"). A Watermill router consumes the subject and
// hands each batch to the detection engine exactly as the HTTP handler does.
//
//	agent ──► cadence.batches ──► Router ──► IngestHandler ──► detection.Engine
//	                                               │
//	                                               ▼
//	                                  ScorePublisher ──► cadence.scores
//
// # Acknowledgement
//
// Messages that can never succeed (unparseable JSON, validation failures)
// are acked and counted in nats_messages_dropped_total. Storage failures
// are returned to the router, retried with backoff and finally nacked so
// JetStream redelivers them. Rate-limited batches are nacked as well.
//
// # Build tags
//
// The transport-neutral pieces (IngestHandler, Router, ScorePublisher and
// the circuit breaker) build everywhere and are tested with Watermill's
// in-process gochannel pub/sub. The embedded server and the watermill-nats
// wiring require -tags nats; without it NewComponents returns
// ErrNATSNotEnabled.
package eventprocessor
