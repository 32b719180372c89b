// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package checkpoint

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/model"
)

// Service periodically checkpoints the shared trainer. It implements
// suture.Service.
type Service struct {
	store    *Store
	trainer  *model.Trainer
	interval time.Duration

	mu        sync.Mutex
	lastSteps int64
	lastSave  time.Time
}

// NewService creates a checkpoint service. A non-positive interval uses
// five minutes.
func NewService(store *Store, trainer *model.Trainer, interval time.Duration) *Service {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Service{
		store:     store,
		trainer:   trainer,
		interval:  interval,
		lastSteps: trainer.Steps(),
	}
}

// Serve runs until ctx is canceled, then writes a final checkpoint.
func (s *Service) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", s.interval).Msg("Checkpoint service started")

	for {
		select {
		case <-ctx.Done():
			// The parent context is gone; the final save gets its own.
			saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if _, err := s.SaveNow(saveCtx); err != nil {
				logging.Error().Err(err).Msg("Final checkpoint failed")
			}
			cancel()
			logging.Info().Msg("Checkpoint service stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.SaveNow(ctx); err != nil {
				logging.Error().Err(err).Msg("Periodic checkpoint failed")
				continue
			}
			s.store.RunGC()
		}
	}
}

// SaveNow writes a checkpoint if the model trained since the last one and
// reports whether it did.
func (s *Service) SaveNow(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps := s.trainer.Steps()
	if steps == s.lastSteps {
		return false, nil
	}
	if !s.trainer.WeightsFinite() {
		logging.Warn().Int64("steps", steps).Msg("Skipping checkpoint of non-finite weights")
		return false, nil
	}

	meta, err := s.store.Save(ctx, s.trainer.Snapshot())
	if err != nil {
		return false, err
	}
	s.lastSteps = meta.Steps
	s.lastSave = meta.SavedAt

	logging.Debug().
		Str("checkpoint_id", meta.ID).
		Int64("steps", meta.Steps).
		Int("bytes", meta.Size).
		Msg("Model checkpoint written")
	return true, nil
}

// LastSave returns when the service last wrote a checkpoint.
func (s *Service) LastSave() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSave
}

// String implements fmt.Stringer for suture logging.
func (s *Service) String() string {
	return "checkpoint-service"
}

// Restore loads the newest checkpoint into trainer. It returns false when
// there is none to load.
func Restore(ctx context.Context, store *Store, trainer *model.Trainer) (bool, error) {
	state, meta, err := store.Latest(ctx)
	if err != nil {
		if errors.Is(err, ErrNoCheckpoint) {
			return false, nil
		}
		return false, err
	}
	if err := trainer.Restore(state); err != nil {
		return false, err
	}
	logging.Info().
		Str("checkpoint_id", meta.ID).
		Int64("steps", meta.Steps).
		Time("saved_at", meta.SavedAt).
		Msg("Model restored from checkpoint")
	return true, nil
}
