// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package model

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"time"
)

// ParamState is the persisted form of one tensor and its Adam moments.
type ParamState struct {
	Name string
	Rows int
	Cols int
	W    []float64
	M    []float64
	V    []float64
}

// State is a complete, self-describing copy of the trainer.
type State struct {
	Config        Config
	Steps         int64
	LastTrainedAt time.Time
	SavedAt       time.Time
	Params        []ParamState
}

// Snapshot copies the current weights and optimizer state.
func (t *Trainer) Snapshot() *State {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &State{
		Config:        t.net.cfg,
		Steps:         t.opt.step,
		LastTrainedAt: t.lastTrainedAt,
		SavedAt:       time.Now(),
		Params:        make([]ParamState, len(t.net.params)),
	}
	for i, p := range t.net.params {
		s.Params[i] = ParamState{
			Name: p.Name,
			Rows: p.Rows,
			Cols: p.Cols,
			W:    append([]float64(nil), p.W...),
			M:    append([]float64(nil), t.opt.m[i]...),
			V:    append([]float64(nil), t.opt.v[i]...),
		}
	}
	return s
}

// Restore replaces the trainer's weights and optimizer state with s. The
// state must have been produced by a network of the same shape.
func (t *Trainer) Restore(s *State) error {
	if s == nil {
		return fmt.Errorf("nil model state")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(s.Params) != len(t.net.params) {
		return fmt.Errorf("state has %d tensors, network has %d", len(s.Params), len(t.net.params))
	}
	for i, p := range t.net.params {
		ps := &s.Params[i]
		if ps.Name != p.Name || ps.Rows != p.Rows || ps.Cols != p.Cols {
			return fmt.Errorf("tensor %d mismatch: state %s[%dx%d], network %s[%dx%d]",
				i, ps.Name, ps.Rows, ps.Cols, p.Name, p.Rows, p.Cols)
		}
		if len(ps.W) != len(p.W) || len(ps.M) != len(p.W) || len(ps.V) != len(p.W) {
			return fmt.Errorf("tensor %s has truncated data", ps.Name)
		}
		if !allFinite(ps.W) {
			return fmt.Errorf("tensor %s: %w", ps.Name, ErrNonFinite)
		}
	}

	for i, p := range t.net.params {
		copy(p.W, s.Params[i].W)
		copy(t.opt.m[i], s.Params[i].M)
		copy(t.opt.v[i], s.Params[i].V)
	}
	t.opt.step = s.Steps
	t.lastTrainedAt = s.LastTrainedAt
	return nil
}

// Encode serializes the state as gzip-compressed gob.
func (s *State) Encode() ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode model state: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress model state: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeState parses a state produced by Encode.
func DecodeState(data []byte) (*State, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open compressed model state: %w", err)
	}
	defer gz.Close()

	s := &State{}
	if err := gob.NewDecoder(gz).Decode(s); err != nil {
		return nil, fmt.Errorf("failed to decode model state: %w", err)
	}
	return s, nil
}
