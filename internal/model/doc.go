// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package model implements the sequence reconstruction network used to score
// behavioral drift.
//
// # Architecture
//
// The network is an LSTM autoencoder with an attention bridge:
//
//	features (T x 6)
//	    -> LSTM encoder (hidden H)            encoder outputs e_1..e_T
//	    -> linear(e_T) = z                    latent summary (L)
//	    -> linear(z) = s                      decoder seed (H)
//	    -> multi-head attention(q=s, kv=e)    context (H)
//	    -> context repeated T times
//	    -> LSTM decoder, initial state (s, 0)
//	    -> linear -> reconstruction (T x 6)
//
// Training minimises mean squared reconstruction error with Adam and L2 weight
// decay added to the gradient. Everything is plain float64 arithmetic with
// hand-written backpropagation through time; there is no autograd.
//
// # Online Training
//
// A single Trainer owns the network and its optimizer state. Every call to
// Step performs one gradient update on the supplied window and then scores
// that same window with the updated weights. All work on the shared weights
// happens under the trainer's mutex, so concurrent callers are serialized.
//
// # Persistence
//
// Snapshot and Restore convert the trainer to and from a gob-encodable State,
// which the checkpoint package stores in BadgerDB.
package model
