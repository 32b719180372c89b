// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package model

import (
	"math"
	"math/rand"
)

// lstm is a single-layer LSTM. Gates are packed in the order
// input, forget, cell, output along the rows of each weight matrix.
type lstm struct {
	in, hidden int
	wih        *Param // 4H x in
	whh        *Param // 4H x H
	b          *Param // 4H
}

type lstmStep struct {
	x, hPrev, cPrev []float64
	i, f, g, o      []float64
	c, h            []float64
}

type lstmCache struct {
	steps []lstmStep
}

func newLSTM(name string, in, hidden int, rng *rand.Rand) *lstm {
	l := &lstm{
		in:     in,
		hidden: hidden,
		wih:    newParam(name+".weight_ih", 4*hidden, in),
		whh:    newParam(name+".weight_hh", 4*hidden, hidden),
		b:      newParam(name+".bias", 4*hidden, 1),
	}
	bound := 1 / math.Sqrt(float64(hidden))
	l.wih.uniform(rng, bound)
	l.whh.uniform(rng, bound)
	l.b.uniform(rng, bound)
	return l
}

func (l *lstm) params() []*Param { return []*Param{l.wih, l.whh, l.b} }

// forward runs the sequence from the initial state (h0, c0) and returns the
// hidden state at every step. The returned slices are owned by the cache.
func (l *lstm) forward(xs [][]float64, h0, c0 []float64) ([][]float64, *lstmCache) {
	H := l.hidden
	cache := &lstmCache{steps: make([]lstmStep, len(xs))}
	hs := make([][]float64, len(xs))
	gates := make([]float64, 4*H)

	hPrev, cPrev := h0, c0
	for t, x := range xs {
		copy(gates, l.b.W)
		matVecAdd(gates, l.wih.W, 4*H, l.in, x)
		matVecAdd(gates, l.whh.W, 4*H, H, hPrev)

		st := lstmStep{
			x: x, hPrev: hPrev, cPrev: cPrev,
			i: make([]float64, H), f: make([]float64, H),
			g: make([]float64, H), o: make([]float64, H),
			c: make([]float64, H), h: make([]float64, H),
		}
		for j := 0; j < H; j++ {
			st.i[j] = sigmoid(gates[j])
			st.f[j] = sigmoid(gates[H+j])
			st.g[j] = math.Tanh(gates[2*H+j])
			st.o[j] = sigmoid(gates[3*H+j])
			st.c[j] = st.f[j]*cPrev[j] + st.i[j]*st.g[j]
			st.h[j] = st.o[j] * math.Tanh(st.c[j])
		}

		cache.steps[t] = st
		hs[t] = st.h
		hPrev, cPrev = st.h, st.c
	}
	return hs, cache
}

// backward propagates dhs (gradient w.r.t. each step's hidden output; nil
// entries are treated as zero) through time. It accumulates parameter
// gradients and returns the input gradients and the gradients of the
// initial state.
func (l *lstm) backward(cache *lstmCache, dhs [][]float64) (dxs [][]float64, dh0, dc0 []float64) {
	H := l.hidden
	T := len(cache.steps)
	dxs = make([][]float64, T)
	dhNext := make([]float64, H)
	dcNext := make([]float64, H)
	da := make([]float64, 4*H)

	for t := T - 1; t >= 0; t-- {
		st := &cache.steps[t]
		for j := 0; j < H; j++ {
			dh := dhNext[j]
			if dhs[t] != nil {
				dh += dhs[t][j]
			}
			tc := math.Tanh(st.c[j])
			do := dh * tc
			dc := dcNext[j] + dh*st.o[j]*(1-tc*tc)

			di := dc * st.g[j]
			dg := dc * st.i[j]
			df := dc * st.cPrev[j]
			dcNext[j] = dc * st.f[j]

			da[j] = di * st.i[j] * (1 - st.i[j])
			da[H+j] = df * st.f[j] * (1 - st.f[j])
			da[2*H+j] = dg * (1 - st.g[j]*st.g[j])
			da[3*H+j] = do * st.o[j] * (1 - st.o[j])
		}

		outerAdd(l.wih.G, da, st.x)
		outerAdd(l.whh.G, da, st.hPrev)
		addTo(l.b.G, da)

		dx := make([]float64, l.in)
		matTVecAdd(dx, l.wih.W, 4*H, l.in, da)
		dxs[t] = dx

		dhPrev := make([]float64, H)
		matTVecAdd(dhPrev, l.whh.W, 4*H, H, da)
		dhNext = dhPrev
	}
	return dxs, dhNext, dcNext
}
