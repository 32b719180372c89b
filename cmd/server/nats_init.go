// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package main

import (
	"errors"

	"github.com/tomtom215/cadence/internal/api"
	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/detection"
	"github.com/tomtom215/cadence/internal/eventprocessor"
	"github.com/tomtom215/cadence/internal/logging"
)

// initNATS builds the NATS ingest components and hooks the score publisher
// and health check into the API handler. It returns nil when NATS is
// disabled, not compiled in or fails to start; HTTP ingest keeps working.
func initNATS(cfg *config.Config, engine *detection.Engine, handler *api.Handler) *eventprocessor.Components {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS ingest disabled (NATS_ENABLED=false)")
		return nil
	}

	components, err := eventprocessor.NewComponents(&cfg.NATS, engine)
	if errors.Is(err, eventprocessor.ErrNATSNotEnabled) {
		logging.Warn().Msg("NATS_ENABLED=true but NATS support not compiled (build with -tags nats)")
		return nil
	}
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize NATS, continuing with HTTP ingest only")
		return nil
	}

	if pub := components.ScorePublisher(); pub != nil {
		handler.SetScorePublisher(pub)
	}
	handler.AddHealthCheck("nats", components.Health)

	logging.Info().
		Str("batch_subject", cfg.NATS.BatchSubject).
		Bool("embedded", cfg.NATS.EmbeddedServer).
		Bool("publish_results", cfg.NATS.PublishResults).
		Msg("NATS ingest initialized")
	return components
}
