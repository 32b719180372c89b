// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package services adapts Cadence components to suture.Service.
//
// HTTPServerService wraps the API server's ListenAndServe/Shutdown pair,
// ComponentService wraps anything with a Start/Shutdown lifecycle (the NATS
// ingest components) and SweeperService evicts idle devices from the
// detection registry on a ticker.
package services
