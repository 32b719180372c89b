// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package detection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/tomtom215/cadence/internal/model"
	"github.com/tomtom215/cadence/internal/models"
)

func TestNewEngineRejectsBadConfig(t *testing.T) {
	store := setupTestStore(t)
	trainer, err := model.NewTrainer(testModelConfig())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cfg  EngineConfig
	}{
		{"zero window", EngineConfig{WindowSize: 0, RetentionCap: 10}},
		{"window above cap", EngineConfig{WindowSize: 11, RetentionCap: 10}},
		{"zero cap", EngineConfig{WindowSize: 1, RetentionCap: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEngine(tt.cfg, store, trainer, nil); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := NewEngine(DefaultEngineConfig(), nil, trainer, nil); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestIngestSingleBatch(t *testing.T) {
	engine, store := setupTestEngine(t, DefaultEngineConfig())
	ctx := context.Background()

	events := moves(1000, 300)
	result, err := engine.Ingest(ctx, "dev-a", events)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Loss == nil {
		t.Fatal("Loss should be set after a training step")
	}
	if math.IsNaN(result.Score) || math.IsInf(result.Score, 0) || result.Score < 0 {
		t.Errorf("Score = %v, want finite and non-negative", result.Score)
	}
	if result.Anomaly != (result.Score/ScoreScale > DefaultEngineConfig().Threshold) {
		t.Errorf("Anomaly = %v inconsistent with score %v", result.Anomaly, result.Score)
	}

	if n := countEvents(t, store, "dev-a"); n != 300 {
		t.Errorf("stored events = %d, want 300", n)
	}

	records, err := engine.ListAnomalies(ctx, models.AnomalyFilter{DeviceID: "dev-a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Score != result.Score {
		t.Errorf("record score = %v, want %v", records[0].Score, result.Score)
	}
	if records[0].Timestamp != 1299 {
		t.Errorf("record timestamp = %v, want last event timestamp 1299", records[0].Timestamp)
	}
	if engine.Trainer().Steps() != 1 {
		t.Errorf("Steps = %d, want 1", engine.Trainer().Steps())
	}
}

func TestIngestRetentionAcrossBatches(t *testing.T) {
	engine, store := setupTestEngine(t, DefaultEngineConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := engine.Ingest(ctx, "dev-b", moves(float64(i*750), 750)); err != nil {
			t.Fatalf("batch %d: %v", i, err)
		}
	}

	if n := countEvents(t, store, "dev-b"); n != 1000 {
		t.Errorf("stored events = %d, want 1000", n)
	}
	window, err := store.LoadWindow(ctx, "dev-b", 1000)
	if err != nil {
		t.Fatal(err)
	}
	if window[0].Timestamp != 500 || window[len(window)-1].Timestamp != 1499 {
		t.Errorf("retained range = [%v, %v], want [500, 1499]",
			window[0].Timestamp, window[len(window)-1].Timestamp)
	}

	records, _ := engine.ListAnomalies(ctx, models.AnomalyFilter{DeviceID: "dev-b"})
	if len(records) != 2 {
		t.Errorf("records = %d, want 2", len(records))
	}
}

func TestIngestOversizedBatchIsTrimmed(t *testing.T) {
	engine, store := setupTestEngine(t, DefaultEngineConfig())

	if _, err := engine.Ingest(context.Background(), "dev-c", moves(0, 1500)); err != nil {
		t.Fatal(err)
	}
	if n := countEvents(t, store, "dev-c"); n != 1000 {
		t.Errorf("stored events = %d, want 1000", n)
	}
}

func TestIngestEmptyBatch(t *testing.T) {
	engine, store := setupTestEngine(t, DefaultEngineConfig())
	ctx := context.Background()

	result, err := engine.Ingest(ctx, "fresh", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result != models.NeutralResult() {
		t.Errorf("result = %+v, want neutral", result)
	}
	records, _ := engine.ListAnomalies(ctx, models.AnomalyFilter{DeviceID: "fresh"})
	if len(records) != 0 {
		t.Errorf("records = %d, want 0", len(records))
	}
	if engine.Trainer().Steps() != 0 {
		t.Error("no training step should run without events")
	}

	// An empty batch for a device with history re-scores the stored window.
	if _, err := engine.Ingest(ctx, "fresh", moves(0, 20)); err != nil {
		t.Fatal(err)
	}
	result, err = engine.Ingest(ctx, "fresh", []models.EventInput{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Loss == nil {
		t.Error("empty batch on a populated device should still train")
	}
	if n := countEvents(t, store, "fresh"); n != 20 {
		t.Errorf("stored events = %d, want 20", n)
	}
}

func TestIngestValidationStoresNothing(t *testing.T) {
	engine, store := setupTestEngine(t, DefaultEngineConfig())

	events := moves(0, 5)
	events[3].EventType = "hover"

	_, err := engine.Ingest(context.Background(), "dev-v", events)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields[0].Field != "events[3].event_type" {
		t.Errorf("unexpected validation error: %v", err)
	}
	if n := countEvents(t, store, "dev-v"); n != 0 {
		t.Errorf("stored events = %d, want 0", n)
	}
	if _, ok := engine.Registry().Lookup("dev-v"); ok {
		t.Error("a rejected batch should not register the device")
	}
}

func TestIngestMixedEventTypes(t *testing.T) {
	engine, _ := setupTestEngine(t, DefaultEngineConfig())

	events := []models.EventInput{
		moveEvent(1, 100, 200),
		{Timestamp: f64(1.1), EventType: "click_down", Data: map[string]interface{}{"x": 100.0, "y": 200.0, "button": "left"}},
		{Timestamp: f64(1.2), EventType: "click_up", Data: map[string]interface{}{"x": 100.0, "y": 200.0}},
		{Timestamp: f64(1.5), EventType: "scroll", Data: map[string]interface{}{"x": 10.0, "y": 10.0, "dx": 0.0, "dy": -3.0}},
		keyEvent(2, 65),
		{Timestamp: f64(2.1), EventType: "key_up", Data: map[string]interface{}{"key_code": 65.0}},
	}
	result, err := engine.Ingest(context.Background(), "dev-m", events)
	if err != nil {
		t.Fatal(err)
	}
	if result.Loss == nil {
		t.Error("expected a training step")
	}
}

func TestIngestInstabilityReturnsNeutral(t *testing.T) {
	engine, _ := setupTestEngine(t, DefaultEngineConfig())
	ctx := context.Background()

	events := []models.EventInput{moveEvent(0, 1, 1), moveEvent(1e200, 2, 2)}
	result, err := engine.Ingest(ctx, "dev-x", events)
	if err != nil {
		t.Fatalf("instability should not surface as an error: %v", err)
	}
	if result != models.NeutralResult() {
		t.Errorf("result = %+v, want neutral", result)
	}
	records, _ := engine.ListAnomalies(ctx, models.AnomalyFilter{DeviceID: "dev-x"})
	if len(records) != 0 {
		t.Errorf("records = %d, want 0", len(records))
	}
	if !engine.Trainer().WeightsFinite() {
		t.Fatal("weights must stay finite after a rejected step")
	}

	// The shared model keeps working for other devices.
	result, err = engine.Ingest(ctx, "dev-y", moves(0, 50))
	if err != nil {
		t.Fatal(err)
	}
	if result.Loss == nil || math.IsNaN(result.Score) {
		t.Errorf("healthy device got %+v", result)
	}
}

func TestIngestConcurrentDevices(t *testing.T) {
	engine, store := setupTestEngine(t, DefaultEngineConfig())
	ctx := context.Background()

	const devices = 4
	const batches = 3
	var wg sync.WaitGroup
	errs := make(chan error, devices*batches)
	for d := 0; d < devices; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			id := fmt.Sprintf("dev-%d", d)
			for b := 0; b < batches; b++ {
				if _, err := engine.Ingest(ctx, id, moves(float64(b*100), 100)); err != nil {
					errs <- err
				}
			}
		}(d)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Ingest: %v", err)
	}

	if !engine.Trainer().WeightsFinite() {
		t.Fatal("weights not finite after concurrent training")
	}
	if got := engine.Trainer().Steps(); got != devices*batches {
		t.Errorf("Steps = %d, want %d", got, devices*batches)
	}
	for d := 0; d < devices; d++ {
		id := fmt.Sprintf("dev-%d", d)
		if n := countEvents(t, store, id); n != 300 {
			t.Errorf("%s stored %d events, want 300", id, n)
		}
		result, err := engine.Score(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if math.IsNaN(result.Score) || math.IsInf(result.Score, 0) {
			t.Errorf("%s score = %v", id, result.Score)
		}
		info, ok := engine.Registry().Lookup(id)
		if !ok || info.Batches != batches {
			t.Errorf("%s registry info = %+v", id, info)
		}
	}
}

func TestIngestRateLimited(t *testing.T) {
	store := setupTestStore(t)
	trainer, _ := model.NewTrainer(testModelConfig())
	engine, err := NewEngine(DefaultEngineConfig(), store, trainer, NewDeviceRegistry(0.001, 1))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := engine.Ingest(ctx, "dev-r", moves(0, 10)); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Ingest(ctx, "dev-r", moves(10, 10)); !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	if n := countEvents(t, store, "dev-r"); n != 10 {
		t.Errorf("stored events = %d, want 10", n)
	}
	// Limits are per device.
	if _, err := engine.Ingest(ctx, "dev-s", moves(0, 10)); err != nil {
		t.Errorf("other device limited: %v", err)
	}
}

func TestIngestCanceledContext(t *testing.T) {
	engine, store := setupTestEngine(t, DefaultEngineConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Ingest(ctx, "dev-c", moves(0, 10)); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if n := countEvents(t, store, "dev-c"); n != 0 {
		t.Errorf("stored events = %d, want 0", n)
	}
}

func TestScoreDoesNotTrainOrPersist(t *testing.T) {
	engine, _ := setupTestEngine(t, DefaultEngineConfig())
	ctx := context.Background()

	result, err := engine.Score(ctx, "unknown")
	if err != nil {
		t.Fatal(err)
	}
	if result != models.NeutralResult() {
		t.Errorf("unknown device result = %+v", result)
	}

	if _, err := engine.Ingest(ctx, "dev-s", moves(0, 40)); err != nil {
		t.Fatal(err)
	}
	steps := engine.Trainer().Steps()

	first, err := engine.Score(ctx, "dev-s")
	if err != nil {
		t.Fatal(err)
	}
	second, _ := engine.Score(ctx, "dev-s")
	if first.Score != second.Score {
		t.Errorf("Score not deterministic: %v vs %v", first.Score, second.Score)
	}
	if first.Loss != nil {
		t.Error("Score should not report a loss")
	}
	if engine.Trainer().Steps() != steps {
		t.Error("Score must not train")
	}
	records, _ := engine.ListAnomalies(ctx, models.AnomalyFilter{DeviceID: "dev-s"})
	if len(records) != 1 {
		t.Errorf("records = %d, want 1", len(records))
	}
}

func TestEngineListAnomaliesValidation(t *testing.T) {
	engine, _ := setupTestEngine(t, DefaultEngineConfig())
	ctx := context.Background()

	_, err := engine.ListAnomalies(ctx, models.AnomalyFilter{Start: f64(10), End: f64(5)})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("start after end: err = %v", err)
	}
	_, err = engine.ListAnomalies(ctx, models.AnomalyFilter{Limit: -1})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("negative limit: err = %v", err)
	}
	records, err := engine.ListAnomalies(ctx, models.AnomalyFilter{Start: f64(5), End: f64(5)})
	if err != nil || len(records) != 0 {
		t.Errorf("equal bounds: %v, %v", records, err)
	}
}

type failingStore struct {
	Store
	err error
}

func (f failingStore) AppendEvents(context.Context, string, []models.RawEvent) error {
	return f.err
}

func TestIngestStorageFailure(t *testing.T) {
	trainer, _ := model.NewTrainer(testModelConfig())
	engine, err := NewEngine(DefaultEngineConfig(),
		failingStore{err: storageError("append event", errors.New("disk full"))}, trainer, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = engine.Ingest(context.Background(), "dev-f", moves(0, 3))
	if !errors.Is(err, ErrStorage) {
		t.Errorf("err = %v, want ErrStorage", err)
	}
	// The lease is released on failure.
	info, ok := engine.Registry().Lookup("dev-f")
	if !ok || info.Batches != 0 {
		t.Errorf("registry info = %+v", info)
	}
	if n := engine.Registry().Sweep(-1); n != 1 {
		t.Errorf("Sweep removed %d devices, want 1", n)
	}
}
