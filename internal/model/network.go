// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package model

import (
	"math/rand"
)

// Network is the attention-bridged LSTM autoencoder. It is not safe for
// concurrent use; Trainer provides the locking.
type Network struct {
	cfg Config

	encoder *lstm
	fcEnc   *linear // H -> L
	fcDec   *linear // L -> H
	attn    *attention
	decoder *lstm
	fcOut   *linear // H -> input

	params []*Param
}

// forwardCache holds the intermediates needed for backpropagation.
type forwardCache struct {
	input    [][]float64
	encHs    [][]float64
	encCache *lstmCache
	latent   []float64
	seed     []float64
	attCache *attentionCache
	decHs    [][]float64
	decCache *lstmCache
	output   [][]float64
}

// NewNetwork builds a network with seeded random weights.
func NewNetwork(cfg Config) (*Network, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	//nolint:gosec // G404: math/rand is acceptable for ML initialization (not security)
	rng := rand.New(rand.NewSource(cfg.Seed))

	n := &Network{
		cfg:     cfg,
		encoder: newLSTM("encoder", cfg.InputSize, cfg.HiddenSize, rng),
		fcEnc:   newLinear("fc_enc", cfg.HiddenSize, cfg.LatentSize, rng),
		fcDec:   newLinear("fc_dec", cfg.LatentSize, cfg.HiddenSize, rng),
		attn:    newAttention("attn", cfg.HiddenSize, cfg.NumHeads, rng),
		decoder: newLSTM("decoder", cfg.HiddenSize, cfg.HiddenSize, rng),
		fcOut:   newLinear("fc_out", cfg.HiddenSize, cfg.InputSize, rng),
	}

	n.params = append(n.params, n.encoder.params()...)
	n.params = append(n.params, n.fcEnc.params()...)
	n.params = append(n.params, n.fcDec.params()...)
	n.params = append(n.params, n.attn.params()...)
	n.params = append(n.params, n.decoder.params()...)
	n.params = append(n.params, n.fcOut.params()...)
	return n, nil
}

// Config returns the effective configuration.
func (n *Network) Config() Config { return n.cfg }

// Params returns every trainable tensor in a stable order.
func (n *Network) Params() []*Param { return n.params }

// NumParams returns the total number of scalar weights.
func (n *Network) NumParams() int {
	total := 0
	for _, p := range n.params {
		total += len(p.W)
	}
	return total
}

// Reconstruct returns the network's reconstruction of seq.
func (n *Network) Reconstruct(seq [][]float64) [][]float64 {
	return n.forward(seq).output
}

func (n *Network) forward(seq [][]float64) *forwardCache {
	H := n.cfg.HiddenSize
	T := len(seq)

	c := &forwardCache{input: seq}
	c.encHs, c.encCache = n.encoder.forward(seq, make([]float64, H), make([]float64, H))
	c.latent = n.fcEnc.forward(c.encHs[T-1])
	c.seed = n.fcDec.forward(c.latent)

	var ctx []float64
	ctx, c.attCache = n.attn.forward(c.seed, c.encHs)

	decIn := make([][]float64, T)
	for t := range decIn {
		decIn[t] = ctx
	}
	c.decHs, c.decCache = n.decoder.forward(decIn, c.seed, make([]float64, H))

	c.output = make([][]float64, T)
	for t, h := range c.decHs {
		c.output[t] = n.fcOut.forward(h)
	}
	return c
}

// mse is the mean squared error between the reconstruction and the input.
func mse(output, input [][]float64) float64 {
	var sum float64
	count := 0
	for t := range input {
		for j := range input[t] {
			d := output[t][j] - input[t][j]
			sum += d * d
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// backward accumulates dLoss/dParam for the MSE loss into every Param.G.
func (n *Network) backward(c *forwardCache) {
	T := len(c.input)
	width := len(c.input[0])
	norm := 2.0 / float64(T*width)

	dDecHs := make([][]float64, T)
	for t := 0; t < T; t++ {
		dy := make([]float64, width)
		for j := range dy {
			dy[j] = norm * (c.output[t][j] - c.input[t][j])
		}
		dDecHs[t] = n.fcOut.backward(c.decHs[t], dy)
	}

	dDecIn, dSeed, _ := n.decoder.backward(c.decCache, dDecHs)

	dCtx := make([]float64, n.cfg.HiddenSize)
	for _, d := range dDecIn {
		addTo(dCtx, d)
	}

	dSeedAttn, dEncHs := n.attn.backward(c.attCache, dCtx)
	addTo(dSeed, dSeedAttn)

	dLatent := n.fcDec.backward(c.latent, dSeed)
	dLast := n.fcEnc.backward(c.encHs[T-1], dLatent)
	addTo(dEncHs[T-1], dLast)

	n.encoder.backward(c.encCache, dEncHs)
}

func (n *Network) zeroGrad() {
	for _, p := range n.params {
		p.zeroGrad()
	}
}

func (n *Network) gradsFinite() bool {
	for _, p := range n.params {
		if !allFinite(p.G) {
			return false
		}
	}
	return true
}

// WeightsFinite reports whether every weight is a finite number.
func (n *Network) WeightsFinite() bool {
	for _, p := range n.params {
		if !allFinite(p.W) {
			return false
		}
	}
	return true
}
