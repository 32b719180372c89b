// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package model

import (
	"math"
	"math/rand"
)

// Param is a trainable tensor stored row-major, with its gradient buffer.
// Bias vectors have Cols == 1.
type Param struct {
	Name string
	Rows int
	Cols int
	W    []float64
	G    []float64
}

func newParam(name string, rows, cols int) *Param {
	return &Param{
		Name: name,
		Rows: rows,
		Cols: cols,
		W:    make([]float64, rows*cols),
		G:    make([]float64, rows*cols),
	}
}

//nolint:gosec // G404: math/rand is acceptable for weight initialization
func (p *Param) uniform(rng *rand.Rand, bound float64) {
	for i := range p.W {
		p.W[i] = (rng.Float64()*2 - 1) * bound
	}
}

func (p *Param) zeroGrad() {
	for i := range p.G {
		p.G[i] = 0
	}
}

// matVecAdd computes dst += W x for a rows x cols matrix W.
func matVecAdd(dst, w []float64, rows, cols int, x []float64) {
	for r := 0; r < rows; r++ {
		row := w[r*cols : (r+1)*cols]
		var sum float64
		for c, xv := range x {
			sum += row[c] * xv
		}
		dst[r] += sum
	}
}

// matTVecAdd computes dst += W^T v for a rows x cols matrix W.
func matTVecAdd(dst, w []float64, rows, cols int, v []float64) {
	for r := 0; r < rows; r++ {
		vr := v[r]
		if vr == 0 {
			continue
		}
		row := w[r*cols : (r+1)*cols]
		for c := range dst {
			dst[c] += row[c] * vr
		}
	}
}

// outerAdd computes g += a b^T for a len(a) x len(b) gradient.
func outerAdd(g []float64, a, b []float64) {
	cols := len(b)
	for r, av := range a {
		if av == 0 {
			continue
		}
		row := g[r*cols : (r+1)*cols]
		for c, bv := range b {
			row[c] += av * bv
		}
	}
}

func addTo(dst, src []float64) {
	for i, v := range src {
		dst[i] += v
	}
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if !finite(x) {
			return false
		}
	}
	return true
}
