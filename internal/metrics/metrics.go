// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Batch outcomes used as the "outcome" label on BatchesTotal.
const (
	OutcomeScored      = "scored"
	OutcomeStored      = "stored" // empty batch, nothing to score
	OutcomeInvalid     = "invalid"
	OutcomeUnstable    = "unstable"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

var (
	// Detection pipeline

	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_batches_total",
			Help: "Ingest batches by outcome",
		},
		[]string{"source", "outcome"}, // source: http, nats
	)

	EventsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cadence_events_ingested_total",
			Help: "Raw events appended to the log",
		},
	)

	EventsTrimmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cadence_events_trimmed_total",
			Help: "Raw events removed by retention trimming",
		},
	)

	AnomaliesFlagged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cadence_anomalies_flagged_total",
			Help: "Scored windows whose score exceeded the threshold",
		},
	)

	ModelInstabilities = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cadence_model_instabilities_total",
			Help: "Training steps skipped because loss or gradients were not finite",
		},
	)

	TrainStepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cadence_train_step_duration_seconds",
			Help:    "Duration of one train-then-score step",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	WindowSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cadence_window_events",
			Help:    "Number of events in each scored window",
			Buckets: []float64{1, 10, 25, 50, 100, 150, 200, 500, 1000},
		},
	)

	ScoreDistribution = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cadence_anomaly_score",
			Help:    "Distribution of reconstruction scores",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	RegistryDevices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cadence_registry_devices",
			Help: "Devices currently tracked in the in-memory registry",
		},
	)

	RegistryEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cadence_registry_evictions_total",
			Help: "Idle devices removed from the registry",
		},
	)

	// Database

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// API

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	APIAuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_auth_failures_total",
			Help: "Rejected agent tokens by reason",
		},
		[]string{"reason"},
	)

	// Checkpoints

	CheckpointsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cadence_checkpoints_written_total",
			Help: "Model checkpoints persisted",
		},
	)

	CheckpointErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_checkpoint_errors_total",
			Help: "Checkpoint failures by operation",
		},
		[]string{"operation"}, // save, load, prune
	)

	CheckpointBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cadence_checkpoint_bytes",
			Help: "Size of the most recent checkpoint",
		},
	)

	// Circuit breaker

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// NATS

	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_consumed_total",
			Help: "Batch messages received from NATS",
		},
	)

	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Score results published to NATS",
		},
	)

	NATSMessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_dropped_total",
			Help: "Batch messages acked without processing",
		},
		[]string{"reason"}, // parse, invalid
	)

	NATSProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nats_processing_duration_seconds",
			Help:    "Time to process one batch message",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Application

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table, classifyDBError(err)).Inc()
	}
}

// classifyDBError keeps the error_type label bounded.
func classifyDBError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case strings.Contains(msg, "constraint"):
		return "constraint"
	case strings.Contains(msg, "closed"):
		return "closed"
	default:
		return "other"
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBatch counts one batch for source with the given outcome.
func RecordBatch(source, outcome string) {
	BatchesTotal.WithLabelValues(source, outcome).Inc()
}

// RecordScore records a completed train-and-score step.
func RecordScore(score float64, windowEvents int, duration time.Duration, anomaly bool) {
	TrainStepDuration.Observe(duration.Seconds())
	WindowSize.Observe(float64(windowEvents))
	ScoreDistribution.Observe(score)
	if anomaly {
		AnomaliesFlagged.Inc()
	}
}

// RecordCircuitBreakerTransition updates the state gauge and transition counter.
func RecordCircuitBreakerTransition(name, from, to string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}
