// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/cadence/internal/features"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/model"
	"github.com/tomtom215/cadence/internal/models"
)

// ScoreScale converts reconstruction MSE into the reported score.
const ScoreScale = 100.0

// Batch sources used for metrics.
const (
	SourceHTTP = "http"
	SourceNATS = "nats"
)

// EngineConfig holds the detection parameters.
type EngineConfig struct {
	// WindowSize is the number of newest events fed to the model (W).
	WindowSize int

	// RetentionCap is the number of raw events kept per device (K).
	RetentionCap int

	// Threshold is compared with the unscaled reconstruction error.
	Threshold float64

	// MaxBatchEvents bounds the events accepted in one batch; 0 is unbounded.
	MaxBatchEvents int
}

// DefaultEngineConfig returns W=200, K=1000, threshold 0.01.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		WindowSize:     200,
		RetentionCap:   1000,
		Threshold:      0.01,
		MaxBatchEvents: 10000,
	}
}

// Engine runs the ingest pipeline against a Store and the shared model.
type Engine struct {
	cfg      EngineConfig
	store    Store
	trainer  *model.Trainer
	registry *DeviceRegistry
	now      func() time.Time
}

// NewEngine wires the pipeline. A nil registry gets an unlimited one.
func NewEngine(cfg EngineConfig, store Store, trainer *model.Trainer, registry *DeviceRegistry) (*Engine, error) {
	if cfg.RetentionCap < 1 || cfg.WindowSize < 1 || cfg.WindowSize > cfg.RetentionCap {
		return nil, fmt.Errorf("window size %d must be between 1 and retention cap %d", cfg.WindowSize, cfg.RetentionCap)
	}
	if store == nil || trainer == nil {
		return nil, errors.New("store and trainer are required")
	}
	if registry == nil {
		registry = NewDeviceRegistry(0, 1)
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		trainer:  trainer,
		registry: registry,
		now:      time.Now,
	}, nil
}

// Registry returns the device registry used by the engine.
func (e *Engine) Registry() *DeviceRegistry {
	return e.registry
}

// Trainer returns the shared model trainer.
func (e *Engine) Trainer() *model.Trainer {
	return e.trainer
}

type sourceKey struct{}

// ContextWithSource tags ctx with the transport a batch arrived on.
func ContextWithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFromContext returns the transport tag set by ContextWithSource,
// defaulting to SourceHTTP.
func SourceFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok {
		return s
	}
	return SourceHTTP
}

// Ingest validates, stores and scores one batch for deviceID.
//
// Validation and storage failures are returned. Numeric instability in the
// model yields models.NeutralResult() and a nil error. A device with no
// stored events also yields the neutral result.
func (e *Engine) Ingest(ctx context.Context, deviceID string, events []models.EventInput) (models.ScoreResult, error) {
	source := SourceFromContext(ctx)
	ctx = logging.ContextWithDeviceID(ctx, deviceID)
	log := logging.Ctx(ctx)

	if err := ctx.Err(); err != nil {
		return models.NeutralResult(), err
	}

	batch, err := ValidateBatch(&models.IngestRequest{DeviceID: deviceID, Events: events}, e.cfg.MaxBatchEvents)
	if err != nil {
		metrics.RecordBatch(source, metrics.OutcomeInvalid)
		log.Warn().Err(err).Int("events", len(events)).Msg("Rejected invalid batch")
		return models.NeutralResult(), err
	}

	lease, err := e.registry.Acquire(deviceID)
	if err != nil {
		metrics.RecordBatch(source, metrics.OutcomeRateLimited)
		log.Debug().Msg("Batch rate limited")
		return models.NeutralResult(), err
	}

	result, outcome, err := e.process(ctx, deviceID, batch)
	if err != nil {
		lease.Release(nil)
		metrics.RecordBatch(source, metrics.OutcomeError)
		log.Error().Err(err).Int("events", len(batch)).Msg("Batch processing failed")
		return models.NeutralResult(), err
	}

	if outcome == metrics.OutcomeScored {
		lease.Release(&result)
	} else {
		lease.Release(nil)
	}
	metrics.RecordBatch(source, outcome)
	return result, nil
}

// process runs append → trim → window → train → persist. The caller holds
// the device lease.
func (e *Engine) process(ctx context.Context, deviceID string, batch []models.RawEvent) (models.ScoreResult, string, error) {
	log := logging.Ctx(ctx)

	if err := e.store.AppendEvents(ctx, deviceID, batch); err != nil {
		return models.NeutralResult(), "", err
	}
	metrics.EventsIngested.Add(float64(len(batch)))

	trimmed, err := e.store.TrimDevice(ctx, deviceID, e.cfg.RetentionCap)
	if err != nil {
		return models.NeutralResult(), "", err
	}
	metrics.EventsTrimmed.Add(float64(trimmed))

	window, err := e.store.LoadWindow(ctx, deviceID, e.cfg.WindowSize)
	if err != nil {
		return models.NeutralResult(), "", err
	}
	if window == nil {
		log.Debug().Msg("No stored events, nothing to score")
		return models.NeutralResult(), metrics.OutcomeStored, nil
	}

	seq := features.Matrix(features.Extract(window))
	step, err := e.trainer.Step(seq)
	if err != nil {
		if errors.Is(err, model.ErrNonFinite) {
			metrics.ModelInstabilities.Inc()
			log.Warn().Err(err).Int("window", len(window)).Float64("loss", step.Loss).
				Msg("Model instability, returning neutral result")
			return models.NeutralResult(), metrics.OutcomeUnstable, nil
		}
		return models.NeutralResult(), "", fmt.Errorf("%w: %v", ErrModel, err)
	}

	score := step.Error * ScoreScale
	loss := step.Loss
	result := models.ScoreResult{
		Anomaly: step.Error > e.cfg.Threshold,
		Score:   score,
		Loss:    &loss,
	}

	rec := &models.AnomalyRecord{
		DeviceID:  deviceID,
		Timestamp: e.recordTimestamp(batch),
		Score:     score,
		Loss:      &loss,
	}
	if err := e.store.SaveAnomaly(ctx, rec); err != nil {
		return models.NeutralResult(), "", err
	}

	metrics.RecordScore(step.Error, len(window), step.Duration, result.Anomaly)
	log.Debug().
		Int("events", len(batch)).
		Int("window", len(window)).
		Int64("trimmed", trimmed).
		Float64("loss", loss).
		Float64("score", score).
		Bool("anomaly", result.Anomaly).
		Int64("step", step.Steps).
		Msg("Batch scored")

	return result, metrics.OutcomeScored, nil
}

// recordTimestamp is the last submitted event's timestamp, or now for an
// empty batch.
func (e *Engine) recordTimestamp(batch []models.RawEvent) float64 {
	if len(batch) > 0 {
		return batch[len(batch)-1].Timestamp
	}
	return float64(e.now().UnixNano()) / float64(time.Second)
}

// Score evaluates deviceID's current window with the shared model without
// training and without persisting anything. Loss is always nil.
func (e *Engine) Score(ctx context.Context, deviceID string) (models.ScoreResult, error) {
	window, err := e.store.LoadWindow(ctx, deviceID, e.cfg.WindowSize)
	if err != nil {
		return models.NeutralResult(), err
	}
	if window == nil {
		return models.NeutralResult(), nil
	}

	mse, err := e.trainer.Evaluate(features.Matrix(features.Extract(window)))
	if err != nil {
		if errors.Is(err, model.ErrNonFinite) {
			metrics.ModelInstabilities.Inc()
			logging.Ctx(logging.ContextWithDeviceID(ctx, deviceID)).Warn().Err(err).Msg("Non-finite evaluation")
			return models.NeutralResult(), nil
		}
		return models.NeutralResult(), fmt.Errorf("%w: %v", ErrModel, err)
	}
	return models.ScoreResult{Anomaly: mse > e.cfg.Threshold, Score: mse * ScoreScale}, nil
}

// ListAnomalies returns history records matching filter. Start and End are
// inclusive; Start after End is a validation error.
func (e *Engine) ListAnomalies(ctx context.Context, filter models.AnomalyFilter) ([]models.AnomalyRecord, error) {
	if filter.Start != nil && filter.End != nil && *filter.Start > *filter.End {
		return nil, newValidationError("start", "start must not be after end")
	}
	if filter.Limit < 0 {
		return nil, newValidationError("limit", "limit must not be negative")
	}
	return e.store.ListAnomalies(ctx, filter)
}
