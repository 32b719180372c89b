// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package services

import (
	"context"
	"time"

	"github.com/tomtom215/cadence/internal/logging"
)

// Sweeper removes idle entries and reports how many it removed.
// Satisfied by *detection.DeviceRegistry.
type Sweeper interface {
	Sweep(idle time.Duration) int
	Len() int
}

// SweeperService evicts devices idle for longer than ttl every interval.
type SweeperService struct {
	sweeper  Sweeper
	ttl      time.Duration
	interval time.Duration
}

// NewSweeperService creates the service. A non-positive interval uses
// ttl/2, with a floor of one second.
func NewSweeperService(sweeper Sweeper, ttl, interval time.Duration) *SweeperService {
	if interval <= 0 {
		interval = ttl / 2
	}
	if interval < time.Second {
		interval = time.Second
	}
	return &SweeperService{sweeper: sweeper, ttl: ttl, interval: interval}
}

// Serve implements suture.Service.
func (s *SweeperService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *SweeperService) sweepOnce() int {
	removed := s.sweeper.Sweep(s.ttl)
	if removed > 0 {
		logging.Debug().
			Int("removed", removed).
			Int("active", s.sweeper.Len()).
			Dur("ttl", s.ttl).
			Msg("Swept idle devices")
	}
	return removed
}

func (s *SweeperService) String() string {
	return "registry-sweeper"
}
