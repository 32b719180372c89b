// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package logging provides the process-wide zerolog logger for Cadence.
//
// Every component logs through this package so that output format, level and
// field names are set in one place. JSON is the default; console output is
// available for local development.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Int("port", 8420).Msg("HTTP server listening")
//	logging.Err(err).Str("device_id", id).Msg("Failed to persist batch")
//
// # Request Context
//
// HTTP middleware stores the request ID in the context; the ingest path adds
// the device ID. Ctx returns a logger carrying both:
//
//	ctx = logging.ContextWithDeviceID(ctx, deviceID)
//	logging.Ctx(ctx).Debug().Int("events", n).Msg("Batch accepted")
//	// {"level":"debug","request_id":"...","device_id":"ws-01","events":12,...}
//
// # Components
//
// Long-lived services take a component logger once and keep it:
//
//	log := logging.WithComponent("checkpoint")
//	log.Info().Msg("Checkpoint written")
//
// # slog Bridge
//
// Libraries that only accept *slog.Logger (the suture supervisor via
// sutureslog) are given NewSlogLogger(), which forwards to zerolog.
//
// # Configuration
//
// Level and format come from the logging section of the application config
// (LOG_LEVEL, LOG_FORMAT, LOG_CALLER).
package logging
