// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package model

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrNonFinite is returned when the input, loss, gradients or score
	// contain NaN or Inf. The optimizer step is skipped in that case.
	ErrNonFinite = errors.New("non-finite value in model computation")

	// ErrEmptySequence is returned for a zero-length window.
	ErrEmptySequence = errors.New("empty input sequence")

	// ErrShape is returned when a time step has the wrong feature width.
	ErrShape = errors.New("input feature width does not match model")
)

// StepResult is the outcome of one online training step.
type StepResult struct {
	// Loss is the training loss measured before the weight update.
	Loss float64

	// Error is the reconstruction MSE of the same window after the update.
	Error float64

	// Steps is the optimizer step count after this update.
	Steps int64

	// Duration is the wall time spent holding the model lock.
	Duration time.Duration
}

// Trainer owns the shared network and its optimizer state. All methods are
// safe for concurrent use; training and scoring are fully serialized.
type Trainer struct {
	mu            sync.Mutex
	net           *Network
	opt           *adam
	lastTrainedAt time.Time
}

// NewTrainer builds a freshly initialized trainer.
func NewTrainer(cfg Config) (*Trainer, error) {
	net, err := NewNetwork(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build network: %w", err)
	}
	return &Trainer{
		net: net,
		opt: newAdam(net.cfg, net.params),
	}, nil
}

// Config returns the network configuration.
func (t *Trainer) Config() Config {
	return t.net.cfg
}

// Steps returns the number of optimizer updates applied so far.
func (t *Trainer) Steps() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opt.step
}

// LastTrainedAt returns when the last successful step finished.
func (t *Trainer) LastTrainedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastTrainedAt
}

// Step trains once on seq and then scores seq with the updated weights.
//
// A non-finite loss or gradient returns ErrNonFinite before the optimizer
// runs, leaving the weights untouched. A non-finite score after the update
// also returns ErrNonFinite, but the update has already been applied.
func (t *Trainer) Step(seq [][]float64) (StepResult, error) {
	if err := t.checkInput(seq); err != nil {
		return StepResult{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	start := time.Now()

	t.net.zeroGrad()
	cache := t.net.forward(seq)
	loss := mse(cache.output, seq)
	if !finite(loss) {
		return StepResult{Loss: loss}, fmt.Errorf("training loss: %w", ErrNonFinite)
	}

	t.net.backward(cache)
	if !t.net.gradsFinite() {
		return StepResult{Loss: loss}, fmt.Errorf("gradients: %w", ErrNonFinite)
	}
	t.opt.update(t.net.params)
	t.lastTrainedAt = time.Now()

	score := mse(t.net.forward(seq).output, seq)
	res := StepResult{
		Loss:     loss,
		Error:    score,
		Steps:    t.opt.step,
		Duration: time.Since(start),
	}
	if !finite(score) {
		return res, fmt.Errorf("score: %w", ErrNonFinite)
	}
	return res, nil
}

// Evaluate returns the reconstruction MSE of seq without training.
func (t *Trainer) Evaluate(seq [][]float64) (float64, error) {
	if err := t.checkInput(seq); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	score := mse(t.net.forward(seq).output, seq)
	if !finite(score) {
		return score, ErrNonFinite
	}
	return score, nil
}

// WeightsFinite reports whether the shared weights are all finite.
func (t *Trainer) WeightsFinite() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.net.WeightsFinite()
}

func (t *Trainer) checkInput(seq [][]float64) error {
	if len(seq) == 0 {
		return ErrEmptySequence
	}
	width := t.net.cfg.InputSize
	for i, row := range seq {
		if len(row) != width {
			return fmt.Errorf("step %d has %d features, want %d: %w", i, len(row), width, ErrShape)
		}
		if !allFinite(row) {
			return fmt.Errorf("input step %d: %w", i, ErrNonFinite)
		}
	}
	return nil
}
