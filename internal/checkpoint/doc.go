// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package checkpoint persists the shared reconstruction model in BadgerDB so
that training survives a restart.

Each checkpoint is one Badger key under the "checkpoint:" prefix. Keys embed
the save time as zero-padded nanoseconds, so a reverse prefix iteration
yields the newest checkpoint first. Values are a JSON envelope holding the
encoded model.State and its SHA-256 checksum; Latest refuses an envelope
whose checksum does not match.

Service is a suture.Service that writes a checkpoint every interval when the
model has trained since the last save, and once more on shutdown:

	store, err := checkpoint.Open(&cfg.Checkpoint)
	...
	if state, meta, err := store.Latest(ctx); err == nil {
		_ = trainer.Restore(state)
	}
	tree.AddDataService(checkpoint.NewService(store, trainer, cfg.Checkpoint.Interval))

Checkpointing is disabled by default; without it every process start builds
a freshly initialised model.
*/
package checkpoint
