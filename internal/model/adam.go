// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package model

import "math"

// adam is the Adam optimizer with classic (coupled) L2 weight decay: the
// decay term is added to the gradient before the moment updates.
type adam struct {
	lr, beta1, beta2, eps, weightDecay float64

	step int64
	m    [][]float64
	v    [][]float64
}

func newAdam(cfg Config, params []*Param) *adam {
	a := &adam{
		lr:          cfg.LearningRate,
		beta1:       cfg.Beta1,
		beta2:       cfg.Beta2,
		eps:         cfg.Epsilon,
		weightDecay: cfg.WeightDecay,
		m:           make([][]float64, len(params)),
		v:           make([][]float64, len(params)),
	}
	for i, p := range params {
		a.m[i] = make([]float64, len(p.W))
		a.v[i] = make([]float64, len(p.W))
	}
	return a
}

func (a *adam) update(params []*Param) {
	a.step++
	bc1 := 1 - math.Pow(a.beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.beta2, float64(a.step))

	for pi, p := range params {
		m, v := a.m[pi], a.v[pi]
		for j := range p.W {
			g := p.G[j] + a.weightDecay*p.W[j]
			m[j] = a.beta1*m[j] + (1-a.beta1)*g
			v[j] = a.beta2*v[j] + (1-a.beta2)*g*g
			p.W[j] -= a.lr * (m[j] / bc1) / (math.Sqrt(v[j]/bc2) + a.eps)
		}
	}
}
