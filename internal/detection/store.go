// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package detection

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/cadence/internal/database"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/models"
)

// Store is the persistence used by Engine. DuckDBStore is the production
// implementation.
type Store interface {
	// AppendEvents writes all events for deviceID atomically.
	AppendEvents(ctx context.Context, deviceID string, events []models.RawEvent) error

	// TrimDevice keeps the newest keep rows for deviceID and returns how
	// many were deleted.
	TrimDevice(ctx context.Context, deviceID string, keep int) (int64, error)

	// LoadWindow returns up to size newest events, ascending by timestamp,
	// or nil if the device has none.
	LoadWindow(ctx context.Context, deviceID string, size int) ([]models.RawEvent, error)

	// SaveAnomaly appends rec and fills in its ID.
	SaveAnomaly(ctx context.Context, rec *models.AnomalyRecord) error

	// ListAnomalies returns matching records in insertion order.
	ListAnomalies(ctx context.Context, filter models.AnomalyFilter) ([]models.AnomalyRecord, error)
}

// DuckDBStore implements Store on the raw_events and anomalies tables.
type DuckDBStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewDuckDBStore creates a store on an open connection whose schema was
// created by database.New.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// AppendEvents inserts events in submission order inside one transaction.
func (s *DuckDBStore) AppendEvents(ctx context.Context, deviceID string, events []models.RawEvent) (err error) {
	if len(events) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", database.TableRawEvents, time.Since(start), err) }()

	// Encode before opening the transaction so a bad payload never reaches
	// the database.
	encoded := make([]string, len(events))
	for i := range events {
		data, encErr := models.MarshalPayload(events[i].Payload)
		if encErr != nil {
			return storageError("encode payload", encErr)
		}
		encoded[i] = string(data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin append", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO raw_events (device_id, ts, event_type, data, received_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return storageError("prepare append", err)
	}
	defer stmt.Close()

	receivedAt := s.now()
	for i := range events {
		if _, err = stmt.ExecContext(ctx,
			deviceID, events[i].Timestamp, string(events[i].EventType), encoded[i], receivedAt,
		); err != nil {
			return storageError("append event", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return storageError("commit append", err)
	}
	return nil
}

// TrimDevice deletes everything but the newest keep rows. Equal timestamps
// are ranked by insertion order, newest first.
func (s *DuckDBStore) TrimDevice(ctx context.Context, deviceID string, keep int) (deleted int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("delete", database.TableRawEvents, time.Since(start), err) }()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM raw_events
		WHERE device_id = ?
		  AND id NOT IN (
			SELECT id FROM raw_events
			WHERE device_id = ?
			ORDER BY ts DESC, id DESC
			LIMIT ?
		  )`,
		deviceID, deviceID, keep)
	if err != nil {
		return 0, storageError("trim", err)
	}
	deleted, err = res.RowsAffected()
	if err != nil {
		return 0, storageError("trim rows affected", err)
	}
	return deleted, nil
}

// LoadWindow returns the newest size events for deviceID in ascending
// timestamp order, or nil when the device has no stored events.
func (s *DuckDBStore) LoadWindow(ctx context.Context, deviceID string, size int) (window []models.RawEvent, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", database.TableRawEvents, time.Since(start), err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, event_type, data
		FROM raw_events
		WHERE device_id = ?
		ORDER BY ts DESC, id DESC
		LIMIT ?`,
		deviceID, size)
	if err != nil {
		return nil, storageError("load window", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ev        models.RawEvent
			eventType string
			data      string
		)
		if err = rows.Scan(&ev.ID, &ev.Timestamp, &eventType, &data); err != nil {
			return nil, storageError("scan window", err)
		}
		ev.DeviceID = deviceID
		ev.EventType = models.EventType(eventType)
		if ev.Payload, err = models.UnmarshalPayload(ev.EventType, []byte(data)); err != nil {
			return nil, storageError(fmt.Sprintf("decode event %d", ev.ID), err)
		}
		window = append(window, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, storageError("iterate window", err)
	}

	// Rows arrive newest first.
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}
	return window, nil
}

// CountEvents returns how many raw events are stored for deviceID.
func (s *DuckDBStore) CountEvents(ctx context.Context, deviceID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM raw_events WHERE device_id = ?`, deviceID).Scan(&n)
	if err != nil {
		return 0, storageError("count events", err)
	}
	return n, nil
}

// SaveAnomaly appends rec. DuckDB sequences do not support LastInsertId, so
// the ID comes back through RETURNING.
func (s *DuckDBStore) SaveAnomaly(ctx context.Context, rec *models.AnomalyRecord) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", database.TableAnomalies, time.Since(start), err) }()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	var loss sql.NullFloat64
	if rec.Loss != nil {
		loss = sql.NullFloat64{Float64: *rec.Loss, Valid: true}
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO anomalies (device_id, ts, score, loss, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		rec.DeviceID, rec.Timestamp, rec.Score, loss, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return storageError("save anomaly", err)
	}
	return nil
}

// ListAnomalies returns records matching filter in insertion order. Start
// and End are inclusive. A positive Limit keeps only the most recent matches.
func (s *DuckDBStore) ListAnomalies(ctx context.Context, filter models.AnomalyFilter) (records []models.AnomalyRecord, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", database.TableAnomalies, time.Since(start), err) }()

	query, args := buildAnomalyQuery(filter)

	// codeql[go/sql-injection]: only fixed fragments are concatenated; values are bound.
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("list anomalies", err)
	}
	defer rows.Close()

	records = make([]models.AnomalyRecord, 0)
	for rows.Next() {
		var (
			rec  models.AnomalyRecord
			loss sql.NullFloat64
		)
		if err = rows.Scan(&rec.ID, &rec.DeviceID, &rec.Timestamp, &rec.Score, &loss, &rec.CreatedAt); err != nil {
			return nil, storageError("scan anomaly", err)
		}
		if loss.Valid {
			v := loss.Float64
			rec.Loss = &v
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, storageError("iterate anomalies", err)
	}
	return records, nil
}

func buildAnomalyQuery(filter models.AnomalyFilter) (string, []interface{}) {
	query := `SELECT id, device_id, ts, score, loss, created_at FROM anomalies WHERE 1=1`
	args := make([]interface{}, 0, 4)

	if filter.DeviceID != "" {
		query += " AND device_id = ?"
		args = append(args, filter.DeviceID)
	}
	if filter.Start != nil {
		query += " AND ts >= ?"
		args = append(args, *filter.Start)
	}
	if filter.End != nil {
		query += " AND ts <= ?"
		args = append(args, *filter.End)
	}

	if filter.Limit > 0 {
		// Keep the most recent matches, still returned oldest first.
		query = `SELECT * FROM (` + query + ` ORDER BY id DESC LIMIT ?) ORDER BY id ASC`
		args = append(args, filter.Limit)
		return query, args
	}
	return query + " ORDER BY id ASC", args
}
