// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package detection implements the behavioral anomaly engine.
//
// One call to Engine.Ingest runs the full per-batch pipeline:
//
//	validate → append → trim → load window → extract → train → score → persist
//
// # Components
//
//   - ValidateBatch: checks every event and decodes its payload; a single bad
//     event rejects the whole batch before anything is written
//   - DuckDBStore: the device-partitioned raw log (append, trim, window) and
//     the append-only anomaly history
//   - DeviceRegistry: one entry per active device holding the mutex that keeps
//     a device's batches in submission order, plus an optional rate limiter
//   - Engine: wires the above to the shared model.Trainer
//
// # Concurrency
//
// Batches for different devices run concurrently up to the model step, where
// model.Trainer serializes all training and scoring. Batches for the same
// device are serialized for the whole pipeline by the registry entry.
//
// # Errors
//
// Validation and storage failures are returned to the caller (ErrValidation,
// ErrStorage). Numeric instability in the model is logged, counted and turned
// into the neutral result {anomaly:false, score:0, loss:null}.
package detection
