// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/cadence/internal/logging"
)

// NewLogger returns a Watermill logger that writes through the application's
// zerolog logger, tagged with component.
func NewLogger(component string) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger(component))
}
