// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package metrics defines the Prometheus instruments exported on /metrics.
//
// All collectors are registered on the default registry through promauto at
// package init, so importing the package is enough to expose them.
//
// # Detection
//
//   - cadence_batches_total{source,outcome}: scored, stored, invalid, unstable, rate_limited, error
//   - cadence_events_ingested_total, cadence_events_trimmed_total
//   - cadence_anomalies_flagged_total, cadence_model_instabilities_total
//   - cadence_train_step_duration_seconds, cadence_window_events, cadence_anomaly_score
//   - cadence_registry_devices, cadence_registry_evictions_total
//
// # Infrastructure
//
//   - duckdb_query_duration_seconds, duckdb_query_errors_total
//   - api_requests_total, api_request_duration_seconds, api_active_requests, api_auth_failures_total
//   - cadence_checkpoints_written_total, cadence_checkpoint_errors_total, cadence_checkpoint_bytes
//   - circuit_breaker_state, circuit_breaker_state_transitions_total
//   - nats_messages_consumed_total, nats_messages_published_total, nats_messages_dropped_total
//
// Example PromQL:
//
//	# Fraction of scored batches flagged in the last hour
//	increase(cadence_anomalies_flagged_total[1h])
//	  / increase(cadence_batches_total{outcome="scored"}[1h])
package metrics
