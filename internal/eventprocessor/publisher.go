// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cadence/internal/detection"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/models"
)

// Metadata keys set on published score messages.
const (
	MetadataDeviceID      = "device_id"
	MetadataRequestID     = "request_id"
	MetadataCorrelationID = "correlation_id"
	MetadataSource        = "source"
)

// ScoreMessage is the JSON body published on the result subject.
type ScoreMessage struct {
	DeviceID string    `json:"device_id"`
	Anomaly  bool      `json:"anomaly"`
	Score    float64   `json:"score"`
	Loss     *float64  `json:"loss"`
	ScoredAt time.Time `json:"scored_at"`
	Source   string    `json:"source"`
}

// ScorePublisher publishes scored batches through a circuit breaker so a
// failing broker cannot stall ingest.
type ScorePublisher struct {
	publisher message.Publisher
	topic     string
	breaker   *gobreaker.CircuitBreaker[interface{}]
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewScorePublisher wraps publisher. Messages go to topic.
func NewScorePublisher(publisher message.Publisher, topic string, cbCfg CircuitBreakerConfig) (*ScorePublisher, error) {
	if publisher == nil {
		return nil, ErrNilPublisher
	}
	if topic == "" {
		return nil, fmt.Errorf("%w: empty result topic", ErrInvalidConfig)
	}
	return &ScorePublisher{
		publisher: publisher,
		topic:     topic,
		breaker:   NewCircuitBreaker(cbCfg),
		now:       time.Now,
	}, nil
}

// PublishScore publishes result for deviceID. It fails fast with
// gobreaker.ErrOpenState while the breaker is open.
func (p *ScorePublisher) PublishScore(ctx context.Context, deviceID string, result models.ScoreResult) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	source := detection.SourceFromContext(ctx)
	body, err := json.Marshal(ScoreMessage{
		DeviceID: deviceID,
		Anomaly:  result.Anomaly,
		Score:    result.Score,
		Loss:     result.Loss,
		ScoredAt: p.now().UTC(),
		Source:   source,
	})
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set(MetadataDeviceID, deviceID)
	msg.Metadata.Set(MetadataSource, source)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataRequestID, id)
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}
	msg.SetContext(ctx)

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(p.topic, msg)
	})
	if err != nil {
		return fmt.Errorf("publish score: %w", err)
	}
	metrics.NATSMessagesPublished.Inc()
	return nil
}

// BreakerState returns the circuit breaker state name.
func (p *ScorePublisher) BreakerState() string {
	return CircuitBreakerState(p.breaker)
}

// Close closes the underlying publisher. Further publishes fail.
func (p *ScorePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
