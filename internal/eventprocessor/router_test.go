// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/cadence/internal/detection"
	"github.com/tomtom215/cadence/internal/models"
)

func testRouterConfig() RouterConfig {
	cfg := DefaultRouterConfig()
	cfg.CloseTimeout = 2 * time.Second
	cfg.RetryInitialInterval = time.Millisecond
	cfg.RetryMaxInterval = 5 * time.Millisecond
	return cfg
}

func runRouter(t *testing.T, r *Router) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-r.Running():
	case err := <-done:
		t.Fatalf("router exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}

	t.Cleanup(func() {
		cancel()
		_ = r.Close()
		<-done
	})
}

func waitCalls(t *testing.T, ing *fakeIngester, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ing.called:
		case <-time.After(5 * time.Second):
			t.Fatalf("got %d ingest calls, want %d", i, n)
		}
	}
}

func TestRouterDeliversBatches(t *testing.T) {
	ps := newPubSub(t)
	ing := newFakeIngester(models.ScoreResult{Score: 1, Loss: lossPtr(0.01)})
	pub := &recordingPublisher{}

	r, err := NewRouter(testRouterConfig(), nil)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	r.AddIngestHandler("cadence.batches", ps, NewIngestHandler(ing, pub))
	runRouter(t, r)

	for i := 0; i < 3; i++ {
		if err := ps.Publish("cadence.batches", batchMessage(t, fmt.Sprintf("dev-%d", i), 2)); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	waitCalls(t, ing, 3)

	if !r.IsRunning() {
		t.Error("IsRunning() = false while consuming")
	}
	// Publishing happens after Ingest returns.
	deadline := time.Now().Add(2 * time.Second)
	for len(pub.Scores()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := len(pub.Scores()); got != 3 {
		t.Errorf("published = %d, want 3", got)
	}
}

func TestRouterRetriesStorageFailures(t *testing.T) {
	ps := newPubSub(t)
	storageErr := fmt.Errorf("append: %w", detection.ErrStorage)
	ing := newFakeIngester(models.NeutralResult(), storageErr, storageErr)

	r, err := NewRouter(testRouterConfig(), nil)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	r.AddIngestHandler("cadence.batches", ps, NewIngestHandler(ing, nil))
	runRouter(t, r)

	if err := ps.Publish("cadence.batches", batchMessage(t, "dev-1", 1)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	// Two failures then success, all within one retry cycle.
	waitCalls(t, ing, 3)

	select {
	case <-ing.called:
		t.Error("unexpected extra delivery after success")
	case <-time.After(100 * time.Millisecond):
	}
}
