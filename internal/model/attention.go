// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package model

import (
	"math"
	"math/rand"
)

// attention is multi-head scaled dot-product attention for a single query
// vector over a memory sequence, with input and output projections.
type attention struct {
	embed, heads, headDim int

	wq, wk, wv *Param // E x E
	bq, bk, bv *Param // E
	wo, bo     *Param
}

type attentionCache struct {
	query   []float64
	memory  [][]float64
	q       []float64
	k, v    [][]float64
	weights [][]float64 // heads x T
	concat  []float64
}

func newAttention(name string, embed, heads int, rng *rand.Rand) *attention {
	a := &attention{
		embed:   embed,
		heads:   heads,
		headDim: embed / heads,
		wq:      newParam(name+".q_proj.weight", embed, embed),
		wk:      newParam(name+".k_proj.weight", embed, embed),
		wv:      newParam(name+".v_proj.weight", embed, embed),
		bq:      newParam(name+".q_proj.bias", embed, 1),
		bk:      newParam(name+".k_proj.bias", embed, 1),
		bv:      newParam(name+".v_proj.bias", embed, 1),
		wo:      newParam(name+".out_proj.weight", embed, embed),
		bo:      newParam(name+".out_proj.bias", embed, 1),
	}
	// Xavier bound over the packed (3E x E) input projection.
	inBound := math.Sqrt(6.0 / float64(embed+3*embed))
	a.wq.uniform(rng, inBound)
	a.wk.uniform(rng, inBound)
	a.wv.uniform(rng, inBound)
	a.wo.uniform(rng, 1/math.Sqrt(float64(embed)))
	return a
}

func (a *attention) params() []*Param {
	return []*Param{a.wq, a.wk, a.wv, a.bq, a.bk, a.bv, a.wo, a.bo}
}

func (a *attention) project(w, b *Param, x []float64) []float64 {
	y := make([]float64, a.embed)
	copy(y, b.W)
	matVecAdd(y, w.W, a.embed, a.embed, x)
	return y
}

func (a *attention) forward(query []float64, memory [][]float64) ([]float64, *attentionCache) {
	E, T, hd := a.embed, len(memory), a.headDim
	scale := 1 / math.Sqrt(float64(hd))

	c := &attentionCache{
		query:   query,
		memory:  memory,
		q:       a.project(a.wq, a.bq, query),
		k:       make([][]float64, T),
		v:       make([][]float64, T),
		weights: make([][]float64, a.heads),
		concat:  make([]float64, E),
	}
	for t, m := range memory {
		c.k[t] = a.project(a.wk, a.bk, m)
		c.v[t] = a.project(a.wv, a.bv, m)
	}

	for h := 0; h < a.heads; h++ {
		lo, hi := h*hd, (h+1)*hd
		w := make([]float64, T)
		maxScore := math.Inf(-1)
		for t := 0; t < T; t++ {
			w[t] = dot(c.q[lo:hi], c.k[t][lo:hi]) * scale
			if w[t] > maxScore {
				maxScore = w[t]
			}
		}
		var sum float64
		for t := range w {
			w[t] = math.Exp(w[t] - maxScore)
			sum += w[t]
		}
		for t := range w {
			w[t] /= sum
			for d := lo; d < hi; d++ {
				c.concat[d] += w[t] * c.v[t][d]
			}
		}
		c.weights[h] = w
	}

	out := a.project(a.wo, a.bo, c.concat)
	return out, c
}

// backward returns the gradients w.r.t. the query and each memory vector.
func (a *attention) backward(c *attentionCache, dout []float64) (dquery []float64, dmemory [][]float64) {
	E, T, hd := a.embed, len(c.memory), a.headDim
	scale := 1 / math.Sqrt(float64(hd))

	outerAdd(a.wo.G, dout, c.concat)
	addTo(a.bo.G, dout)
	dconcat := make([]float64, E)
	matTVecAdd(dconcat, a.wo.W, E, E, dout)

	dq := make([]float64, E)
	dk := make([][]float64, T)
	dv := make([][]float64, T)
	for t := 0; t < T; t++ {
		dk[t] = make([]float64, E)
		dv[t] = make([]float64, E)
	}

	dw := make([]float64, T)
	for h := 0; h < a.heads; h++ {
		lo, hi := h*hd, (h+1)*hd
		w := c.weights[h]

		var weighted float64
		for t := 0; t < T; t++ {
			dw[t] = dot(dconcat[lo:hi], c.v[t][lo:hi])
			weighted += w[t] * dw[t]
			for d := lo; d < hi; d++ {
				dv[t][d] += w[t] * dconcat[d]
			}
		}
		for t := 0; t < T; t++ {
			ds := w[t] * (dw[t] - weighted) * scale
			for d := lo; d < hi; d++ {
				dq[d] += ds * c.k[t][d]
				dk[t][d] += ds * c.q[d]
			}
		}
	}

	outerAdd(a.wq.G, dq, c.query)
	addTo(a.bq.G, dq)
	dquery = make([]float64, E)
	matTVecAdd(dquery, a.wq.W, E, E, dq)

	dmemory = make([][]float64, T)
	for t := 0; t < T; t++ {
		outerAdd(a.wk.G, dk[t], c.memory[t])
		addTo(a.bk.G, dk[t])
		outerAdd(a.wv.G, dv[t], c.memory[t])
		addTo(a.bv.G, dv[t])

		dm := make([]float64, E)
		matTVecAdd(dm, a.wk.W, E, E, dk[t])
		matTVecAdd(dm, a.wv.W, E, E, dv[t])
		dmemory[t] = dm
	}
	return dquery, dmemory
}
