// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/cadence/internal/detection"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/models"
)

// Drop reasons reported in nats_messages_dropped_total.
const (
	DropReasonParse   = "parse"
	DropReasonInvalid = "invalid"
)

// Ingester is the part of detection.Engine the handler needs.
type Ingester interface {
	Ingest(ctx context.Context, deviceID string, events []models.EventInput) (models.ScoreResult, error)
}

// ResultPublisher receives the result of every scored batch.
type ResultPublisher interface {
	PublishScore(ctx context.Context, deviceID string, result models.ScoreResult) error
}

// IngestHandler turns batch messages into Engine.Ingest calls.
type IngestHandler struct {
	ingester  Ingester
	publisher ResultPublisher
}

// NewIngestHandler creates a handler. publisher may be nil.
func NewIngestHandler(ingester Ingester, publisher ResultPublisher) *IngestHandler {
	return &IngestHandler{ingester: ingester, publisher: publisher}
}

// Handle processes one message. A nil return acks it; an error leaves the
// ack decision to the router (retry, then nack).
//
// Handle has the signature of message.NoPublishHandlerFunc.
func (h *IngestHandler) Handle(msg *message.Message) error {
	start := time.Now()
	metrics.NATSMessagesConsumed.Inc()
	defer func() {
		metrics.NATSProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	ctx := detection.ContextWithSource(msg.Context(), detection.SourceNATS)
	correlationID := msg.Metadata.Get(MetadataCorrelationID)
	if correlationID == "" {
		correlationID = msg.UUID
	}
	ctx = logging.ContextWithCorrelationID(ctx, correlationID)
	log := logging.Ctx(ctx)

	var req models.IngestRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		metrics.NATSMessagesDropped.WithLabelValues(DropReasonParse).Inc()
		log.Warn().Err(err).Int("bytes", len(msg.Payload)).Msg("Dropping unparseable batch message")
		return nil
	}

	result, err := h.ingester.Ingest(ctx, req.DeviceID, req.Events)
	switch {
	case err == nil:
	case errors.Is(err, detection.ErrValidation):
		metrics.NATSMessagesDropped.WithLabelValues(DropReasonInvalid).Inc()
		log.Warn().Err(err).Str("device_id", req.DeviceID).Msg("Dropping invalid batch message")
		return nil
	default:
		return fmt.Errorf("ingest batch for %s: %w", req.DeviceID, err)
	}

	if h.publisher != nil && result.Loss != nil {
		if err := h.publisher.PublishScore(ctx, req.DeviceID, result); err != nil {
			// Scores are advisory; the batch is already stored.
			log.Warn().Err(err).Str("device_id", req.DeviceID).Msg("Failed to publish score")
		}
	}
	return nil
}
