// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/cadence/internal/detection"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/models"
)

type ingestCall struct {
	deviceID string
	events   int
	source   string
}

// fakeIngester returns errs in order, then result.
type fakeIngester struct {
	mu     sync.Mutex
	calls  []ingestCall
	errs   []error
	result models.ScoreResult
	called chan struct{}
}

func newFakeIngester(result models.ScoreResult, errs ...error) *fakeIngester {
	return &fakeIngester{result: result, errs: errs, called: make(chan struct{}, 64)}
}

func (f *fakeIngester) Ingest(ctx context.Context, deviceID string, events []models.EventInput) (models.ScoreResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ingestCall{
		deviceID: deviceID,
		events:   len(events),
		source:   detection.SourceFromContext(ctx),
	})
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	f.mu.Unlock()

	f.called <- struct{}{}
	if err != nil {
		return models.NeutralResult(), err
	}
	return f.result, nil
}

func (f *fakeIngester) Calls() []ingestCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ingestCall(nil), f.calls...)
}

type publishedScore struct {
	deviceID      string
	result        models.ScoreResult
	correlationID string
}

type recordingPublisher struct {
	mu     sync.Mutex
	scores []publishedScore
	err    error
}

func (p *recordingPublisher) PublishScore(ctx context.Context, deviceID string, result models.ScoreResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scores = append(p.scores, publishedScore{
		deviceID:      deviceID,
		result:        result,
		correlationID: logging.CorrelationIDFromContext(ctx),
	})
	return p.err
}

func (p *recordingPublisher) Scores() []publishedScore {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedScore(nil), p.scores...)
}

// failingPublisher is a message.Publisher that always errors.
type failingPublisher struct {
	mu    sync.Mutex
	calls int
}

func (p *failingPublisher) Publish(string, ...*message.Message) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return errors.New("broker unavailable")
}

func (p *failingPublisher) Close() error { return nil }

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 16,
		Persistent:          true,
	}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func batchMessage(t *testing.T, deviceID string, n int) *message.Message {
	t.Helper()
	req := models.IngestRequest{DeviceID: deviceID}
	for i := 0; i < n; i++ {
		ts := float64(1000 + i*10)
		req.Events = append(req.Events, models.EventInput{
			Timestamp: &ts,
			EventType: string(models.EventMove),
			Data:      map[string]interface{}{"x": 0.5, "y": 0.5},
		})
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal batch: %v", err)
	}
	return message.NewMessage(watermill.NewUUID(), body)
}

func lossPtr(v float64) *float64 { return &v }
