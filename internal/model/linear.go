// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package model

import (
	"math"
	"math/rand"
)

// linear is a fully connected layer y = W x + b.
type linear struct {
	in, out int
	w, b    *Param
}

func newLinear(name string, in, out int, rng *rand.Rand) *linear {
	l := &linear{
		in:  in,
		out: out,
		w:   newParam(name+".weight", out, in),
		b:   newParam(name+".bias", out, 1),
	}
	bound := 1 / math.Sqrt(float64(in))
	l.w.uniform(rng, bound)
	l.b.uniform(rng, bound)
	return l
}

func (l *linear) params() []*Param { return []*Param{l.w, l.b} }

func (l *linear) forward(x []float64) []float64 {
	y := make([]float64, l.out)
	copy(y, l.b.W)
	matVecAdd(y, l.w.W, l.out, l.in, x)
	return y
}

// backward accumulates parameter gradients and returns dL/dx.
func (l *linear) backward(x, dy []float64) []float64 {
	outerAdd(l.w.G, dy, x)
	addTo(l.b.G, dy)
	dx := make([]float64, l.in)
	matTVecAdd(dx, l.w.W, l.out, l.in, dy)
	return dx
}
