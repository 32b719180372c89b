// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/model"
)

const keyPrefix = "checkpoint:"

var (
	// ErrNoCheckpoint is returned by Latest when nothing has been saved.
	ErrNoCheckpoint = errors.New("no checkpoint found")

	// ErrChecksum is returned when a stored checkpoint fails verification.
	ErrChecksum = errors.New("checkpoint checksum mismatch")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("checkpoint store is closed")
)

// Meta describes a saved checkpoint.
type Meta struct {
	ID       string    `json:"id"`
	SavedAt  time.Time `json:"saved_at"`
	Steps    int64     `json:"steps"`
	Size     int       `json:"size"`
	Checksum string    `json:"checksum"`
}

type envelope struct {
	Meta
	Payload []byte `json:"payload"`
}

// Store keeps model checkpoints in BadgerDB.
type Store struct {
	db       *badger.DB
	keepLast int

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the checkpoint database described by cfg.
func Open(cfg *config.CheckpointConfig) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("checkpoint path is required")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = cfg.SyncWrite
	}
	// Checkpoints are large and few.
	opts.Compression = options.Snappy
	opts.NumVersionsToKeep = 1
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint database: %w", err)
	}

	keep := cfg.KeepLast
	if keep < 1 {
		keep = 1
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Int("keep_last", keep).
		Msg("Checkpoint store opened")

	return &Store{db: db, keepLast: keep}, nil
}

func checkpointKey(savedAt time.Time) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, savedAt.UnixNano()))
}

// Save writes state as the newest checkpoint and prunes old ones.
func (s *Store) Save(ctx context.Context, state *model.State) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Meta{}, ErrClosed
	}

	payload, err := state.Encode()
	if err != nil {
		metrics.CheckpointErrors.WithLabelValues("encode").Inc()
		return Meta{}, err
	}
	sum := sha256.Sum256(payload)

	savedAt := state.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	env := envelope{
		Meta: Meta{
			ID:       uuid.New().String(),
			SavedAt:  savedAt.UTC(),
			Steps:    state.Steps,
			Size:     len(payload),
			Checksum: hex.EncodeToString(sum[:]),
		},
		Payload: payload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		metrics.CheckpointErrors.WithLabelValues("encode").Inc()
		return Meta{}, fmt.Errorf("marshal checkpoint: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(checkpointKey(savedAt), value)
	})
	if err != nil {
		metrics.CheckpointErrors.WithLabelValues("write").Inc()
		return Meta{}, fmt.Errorf("write checkpoint: %w", err)
	}

	metrics.CheckpointsWritten.Inc()
	metrics.CheckpointBytes.Set(float64(len(payload)))

	if pruned, err := s.prune(); err != nil {
		metrics.CheckpointErrors.WithLabelValues("prune").Inc()
		logging.Warn().Err(err).Msg("Failed to prune old checkpoints")
	} else if pruned > 0 {
		logging.Debug().Int("pruned", pruned).Msg("Pruned old checkpoints")
	}

	return env.Meta, nil
}

// Latest returns the newest checkpoint that passes verification.
func (s *Store) Latest(ctx context.Context) (*model.State, Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, Meta{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, Meta{}, ErrClosed
	}

	var env envelope
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek key past every real key.
		it.Seek(append([]byte(keyPrefix), 0xFF))
		if !it.ValidForPrefix([]byte(keyPrefix)) {
			return nil
		}
		found = true
		return it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		})
	})
	if err != nil {
		metrics.CheckpointErrors.WithLabelValues("read").Inc()
		return nil, Meta{}, fmt.Errorf("read checkpoint: %w", err)
	}
	if !found {
		return nil, Meta{}, ErrNoCheckpoint
	}

	sum := sha256.Sum256(env.Payload)
	if hex.EncodeToString(sum[:]) != env.Checksum {
		metrics.CheckpointErrors.WithLabelValues("verify").Inc()
		return nil, env.Meta, fmt.Errorf("checkpoint %s: %w", env.ID, ErrChecksum)
	}

	state, err := model.DecodeState(env.Payload)
	if err != nil {
		metrics.CheckpointErrors.WithLabelValues("decode").Inc()
		return nil, env.Meta, err
	}
	return state, env.Meta, nil
}

// List returns the metadata of every stored checkpoint, oldest first.
func (s *Store) List() ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var out []Meta
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var env envelope
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return err
			}
			out = append(out, env.Meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	return out, nil
}

// prune deletes all but the newest keepLast checkpoints.
func (s *Store) prune() (int, error) {
	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		n := 0
		for it.Seek(append([]byte(keyPrefix), 0xFF)); it.ValidForPrefix([]byte(keyPrefix)); it.Next() {
			n++
			if n > s.keepLast {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil || len(stale) == 0 {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// RunGC reclaims value log space left by pruned checkpoints.
func (s *Store) RunGC() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	for {
		if err := s.db.RunValueLogGC(0.5); err != nil {
			// ErrNoRewrite means there is nothing left to collect.
			if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) {
				logging.Debug().Err(err).Msg("Checkpoint value log GC stopped")
			}
			return
		}
	}
}

// Close closes the database. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
