// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package detection

import (
	"context"
	"testing"

	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/database"
	"github.com/tomtom215/cadence/internal/model"
	"github.com/tomtom215/cadence/internal/models"
)

// setupTestStore opens a private in-memory DuckDB with the full schema.
func setupTestStore(t *testing.T) *DuckDBStore {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{
		Path:                   database.MemoryPath,
		MaxMemory:              "256MB",
		Threads:                2,
		PreserveInsertionOrder: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewDuckDBStore(db.Conn())
}

// testModelConfig is a narrow network so engine tests stay fast.
func testModelConfig() model.Config {
	return model.Config{
		InputSize:  models.FeatureWidth,
		HiddenSize: 8,
		LatentSize: 4,
		NumHeads:   2,
		Seed:       11,
	}
}

func setupTestEngine(t *testing.T, cfg EngineConfig) (*Engine, *DuckDBStore) {
	t.Helper()
	store := setupTestStore(t)
	trainer, err := model.NewTrainer(testModelConfig())
	if err != nil {
		t.Fatalf("NewTrainer: %v", err)
	}
	engine, err := NewEngine(cfg, store, trainer, NewDeviceRegistry(0, 1))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine, store
}

func f64(v float64) *float64 { return &v }

func moveEvent(ts, x, y float64) models.EventInput {
	return models.EventInput{
		Timestamp: f64(ts),
		EventType: string(models.EventMove),
		Data:      map[string]interface{}{"x": x, "y": y},
	}
}

func keyEvent(ts float64, code int) models.EventInput {
	return models.EventInput{
		Timestamp: f64(ts),
		EventType: string(models.EventKeyDown),
		Data:      map[string]interface{}{"key_code": float64(code)},
	}
}

// moves builds n move events with timestamps start, start+1, ...
func moves(start float64, n int) []models.EventInput {
	out := make([]models.EventInput, n)
	for i := range out {
		ts := start + float64(i)
		out[i] = moveEvent(ts, float64(i%1920), float64((i*7)%1080))
	}
	return out
}

func countEvents(t *testing.T, s *DuckDBStore, deviceID string) int64 {
	t.Helper()
	n, err := s.CountEvents(context.Background(), deviceID)
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	return n
}
