package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/translation-quotes/internal/domain/workflow"
)

type mockStatusReader struct {
	mu       sync.Mutex
	statuses []workflow.State
	reads    int
	err      error
}

func (m *mockStatusReader) GetStatus(ctx context.Context, quoteID string) (*QuoteStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	i := m.reads
	if i >= len(m.statuses) {
		i = len(m.statuses) - 1
	}
	m.reads++
	return &QuoteStatus{QuoteID: quoteID, Status: m.statuses[i]}, nil
}

type mockTimeoutMarker struct {
	mu      sync.Mutex
	calls   int
	applied bool
	onMark  func()
}

func (m *mockTimeoutMarker) MarkProcessingTimeout(ctx context.Context, quoteID string) (bool, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.onMark != nil {
		m.onMark()
	}
	return m.applied, nil
}

func TestStatusPoller_ReturnsWhenProcessingEnds(t *testing.T) {
	reader := &mockStatusReader{statuses: []workflow.State{workflow.StateProcessing, workflow.StateProcessing, workflow.StateQuoteReady}}
	marker := &mockTimeoutMarker{}
	poller := NewStatusPoller(reader, marker, 5*time.Millisecond, time.Second, &mockLogger{})

	status, err := poller.Wait(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if status.Status != workflow.StateQuoteReady || status.TimedOut {
		t.Errorf("status = %+v, want quote_ready without timeout", status)
	}
	if reader.reads != 3 {
		t.Errorf("reads = %d, want 3", reader.reads)
	}
	if marker.calls != 0 {
		t.Errorf("timeout marker called %d times, want 0", marker.calls)
	}
}

func TestStatusPoller_TimeoutFlipsToReviewRequired(t *testing.T) {
	reader := &mockStatusReader{statuses: []workflow.State{workflow.StateProcessing}}
	marker := &mockTimeoutMarker{applied: true}
	marker.onMark = func() {
		reader.mu.Lock()
		reader.statuses = []workflow.State{workflow.StateReviewRequired}
		reader.reads = 0
		reader.mu.Unlock()
	}
	poller := NewStatusPoller(reader, marker, 5*time.Millisecond, 30*time.Millisecond, &mockLogger{})

	status, err := poller.Wait(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if marker.calls != 1 {
		t.Errorf("timeout marker called %d times, want 1", marker.calls)
	}
	if status.Status != workflow.StateReviewRequired || !status.TimedOut {
		t.Errorf("status = %+v, want review_required with TimedOut", status)
	}
}

func TestStatusPoller_TimeoutLosesToServer(t *testing.T) {
	reader := &mockStatusReader{statuses: []workflow.State{workflow.StateProcessing}}
	marker := &mockTimeoutMarker{applied: false}
	marker.onMark = func() {
		reader.mu.Lock()
		reader.statuses = []workflow.State{workflow.StateQuoteReady}
		reader.reads = 0
		reader.mu.Unlock()
	}
	poller := NewStatusPoller(reader, marker, 5*time.Millisecond, 20*time.Millisecond, nil)

	status, err := poller.Wait(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if status.Status != workflow.StateQuoteReady || status.TimedOut {
		t.Errorf("status = %+v, want the server's quote_ready", status)
	}
}

func TestStatusPoller_CancelledContextWritesNothing(t *testing.T) {
	reader := &mockStatusReader{statuses: []workflow.State{workflow.StateProcessing}}
	marker := &mockTimeoutMarker{applied: true}
	poller := NewStatusPoller(reader, marker, 5*time.Millisecond, time.Hour, &mockLogger{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := poller.Wait(ctx, "q-1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
	if marker.calls != 0 {
		t.Errorf("timeout marker called %d times after cancellation, want 0", marker.calls)
	}
}

func TestStatusPoller_ReadError(t *testing.T) {
	reader := &mockStatusReader{err: errors.New("db down")}
	poller := NewStatusPoller(reader, &mockTimeoutMarker{}, 0, 0, nil)

	if _, err := poller.Wait(context.Background(), "q-1"); err == nil {
		t.Error("Wait() error = nil, want the read failure")
	}
}

func TestStatusPoller_WithQuoteService(t *testing.T) {
	h := newTestHarness(testQuote("q-1", workflow.StateProcessing))
	poller := NewStatusPoller(h.quoteSvc, h.processing, 5*time.Millisecond, 20*time.Millisecond, nil)

	status, err := poller.Wait(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if status.Status != workflow.StateReviewRequired || !status.TimedOut {
		t.Errorf("status = %+v, want review_required after timeout", status)
	}
	if len(h.history.history) != 1 || h.history.history[0].Actor != "client_timeout" {
		t.Errorf("history = %v, want one client_timeout transition", h.history.path())
	}
}
