// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package model

import "fmt"

// Config contains the network shape and optimizer settings.
type Config struct {
	// InputSize is the number of features per time step.
	// Default: 6.
	InputSize int

	// HiddenSize is the LSTM hidden width, also the attention embedding size.
	// Default: 64.
	HiddenSize int

	// LatentSize is the width of the bottleneck summary.
	// Default: 16.
	LatentSize int

	// NumHeads is the number of attention heads. Must divide HiddenSize.
	// Default: 4.
	NumHeads int

	// LearningRate is the Adam step size.
	// Default: 1e-3.
	LearningRate float64

	// WeightDecay is the L2 penalty added to every gradient.
	// Default: 0.03.
	WeightDecay float64

	// Beta1 and Beta2 are the Adam moment decay rates.
	Beta1 float64
	Beta2 float64

	// Epsilon guards the Adam denominator.
	Epsilon float64

	// Seed for reproducible weight initialization.
	// If 0, uses a default seed.
	Seed int64
}

// DefaultConfig returns the default network configuration.
func DefaultConfig() Config {
	return Config{
		InputSize:    6,
		HiddenSize:   64,
		LatentSize:   16,
		NumHeads:     4,
		LearningRate: 1e-3,
		WeightDecay:  0.03,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		Seed:         42,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InputSize <= 0 {
		c.InputSize = d.InputSize
	}
	if c.HiddenSize <= 0 {
		c.HiddenSize = d.HiddenSize
	}
	if c.LatentSize <= 0 {
		c.LatentSize = d.LatentSize
	}
	if c.NumHeads <= 0 {
		c.NumHeads = d.NumHeads
	}
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.WeightDecay < 0 {
		c.WeightDecay = d.WeightDecay
	}
	if c.Beta1 <= 0 || c.Beta1 >= 1 {
		c.Beta1 = d.Beta1
	}
	if c.Beta2 <= 0 || c.Beta2 >= 1 {
		c.Beta2 = d.Beta2
	}
	if c.Epsilon <= 0 {
		c.Epsilon = d.Epsilon
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	return c
}

// Validate checks that the shape is usable.
func (c Config) Validate() error {
	if c.HiddenSize%c.NumHeads != 0 {
		return fmt.Errorf("hidden size %d is not divisible by %d heads", c.HiddenSize, c.NumHeads)
	}
	return nil
}
