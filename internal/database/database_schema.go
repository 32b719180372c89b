// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package database

import (
	"context"
	"fmt"
)

// Table names.
const (
	TableRawEvents = "raw_events"
	TableAnomalies = "anomalies"
)

var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS raw_events_id_seq START 1;`,
	`CREATE TABLE IF NOT EXISTS raw_events (
		id BIGINT PRIMARY KEY DEFAULT nextval('raw_events_id_seq'),
		device_id VARCHAR NOT NULL,
		ts DOUBLE NOT NULL,
		event_type VARCHAR NOT NULL,
		data VARCHAR NOT NULL,
		received_at TIMESTAMP NOT NULL
	);`,

	`CREATE SEQUENCE IF NOT EXISTS anomalies_id_seq START 1;`,
	`CREATE TABLE IF NOT EXISTS anomalies (
		id BIGINT PRIMARY KEY DEFAULT nextval('anomalies_id_seq'),
		device_id VARCHAR NOT NULL,
		ts DOUBLE NOT NULL,
		score DOUBLE NOT NULL,
		loss DOUBLE,
		created_at TIMESTAMP NOT NULL
	);`,
}

var indexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_raw_events_device_ts ON raw_events(device_id, ts);`,
	`CREATE INDEX IF NOT EXISTS idx_anomalies_device_ts ON anomalies(device_id, ts);`,
}

func (db *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	if db.cfg.SkipIndexes {
		return nil
	}
	for _, stmt := range indexStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
