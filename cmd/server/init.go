// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/cadence/internal/auth"
	"github.com/tomtom215/cadence/internal/checkpoint"
	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/model"
)

// initModel builds the shared trainer from the model section.
func initModel(cfg *config.Config) (*model.Trainer, error) {
	mc := model.DefaultConfig()
	mc.HiddenSize = cfg.Model.HiddenSize
	mc.LatentSize = cfg.Model.LatentSize
	mc.NumHeads = cfg.Model.NumHeads
	mc.LearningRate = cfg.Model.LearningRate
	mc.WeightDecay = cfg.Model.WeightDecay
	mc.Seed = cfg.Model.Seed

	trainer, err := model.NewTrainer(mc)
	if err != nil {
		return nil, fmt.Errorf("create model: %w", err)
	}
	logging.Info().
		Int("hidden", mc.HiddenSize).
		Int("latent", mc.LatentSize).
		Int("heads", mc.NumHeads).
		Float64("learning_rate", mc.LearningRate).
		Msg("Model initialized")
	return trainer, nil
}

type checkpointParts struct {
	store   *checkpoint.Store
	service *checkpoint.Service
}

func (p *checkpointParts) health(_ context.Context) error {
	_, err := p.store.List()
	return err
}

// initCheckpoints opens the checkpoint store and restores the newest
// checkpoint into trainer. It returns nil when checkpoints are disabled.
// A checkpoint that fails verification is skipped and the model starts
// fresh.
func initCheckpoints(ctx context.Context, cfg *config.Config, trainer *model.Trainer) (*checkpointParts, error) {
	if !cfg.Checkpoint.Enabled {
		logging.Info().Msg("Model checkpoints disabled (CHECKPOINT_ENABLED=false)")
		return nil, nil
	}

	store, err := checkpoint.Open(&cfg.Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}

	restored, err := checkpoint.Restore(ctx, store, trainer)
	switch {
	case errors.Is(err, checkpoint.ErrChecksum):
		logging.Warn().Err(err).Msg("Newest checkpoint is corrupt, starting with a fresh model")
	case err != nil:
		_ = store.Close()
		return nil, fmt.Errorf("restore checkpoint: %w", err)
	case !restored:
		logging.Info().Msg("No checkpoint found, starting with a fresh model")
	}

	return &checkpointParts{
		store:   store,
		service: checkpoint.NewService(store, trainer, cfg.Checkpoint.Interval),
	}, nil
}

// initAuth returns the JWT middleware, or nil in no-auth mode.
func initAuth(cfg *config.Config) (*auth.Middleware, error) {
	if cfg.Security.AuthMode != "jwt" {
		logging.Warn().Msg("Authentication disabled (AUTH_MODE=none)")
		return nil, nil
	}
	manager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return nil, fmt.Errorf("create JWT manager: %w", err)
	}
	logging.Info().Str("issuer", cfg.Security.JWTIssuer).Msg("JWT authentication enabled")
	return auth.NewMiddleware(manager), nil
}

// watchConfig applies log level changes from the config file, if one is
// in use. Other settings need a restart.
func watchConfig() {
	path := config.ConfigFilePath()
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		cfg, err := config.Load()
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config file change")
			return
		}
		logging.SetLevelString(cfg.Logging.Level)
		logging.Info().Str("level", cfg.Logging.Level).Msg("Log level reloaded")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}
