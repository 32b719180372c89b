// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package database owns the DuckDB connection used by Cadence.
//
// # Overview
//
// DuckDB holds two tables:
//   - raw_events: the capped per-device interaction log
//   - anomalies: the append-only history of batch scores
//
// Both are indexed on (device_id, ts) so that window loads, retention trims
// and range queries stay index-driven. Query logic lives with its consumers
// (see internal/detection); this package only manages the connection
// lifecycle and schema.
//
// # Usage
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	store := detection.NewDuckDBStore(db.Conn())
//
// An empty path or ":memory:" opens an in-memory database, which tests use.
package database
