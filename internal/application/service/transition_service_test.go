package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
)

// Runs the shared lifecycle table from an importing package, where package
// initialisation order differs from the workflow package's own tests.
func TestLifecycleUsableFromImportingPackage(t *testing.T) {
	if !workflow.CanTransition(workflow.StateDraft, workflow.StateProcessing) {
		t.Fatal("CanTransition(draft, processing) = false, want true")
	}
	if workflow.CanTransition(workflow.StateConverted, workflow.StateProcessing) {
		t.Fatal("CanTransition(converted, processing) = true, want false")
	}
	trigger, err := workflow.ValidateTransition(context.Background(), workflow.StateProcessing, workflow.StateReviewRequired)
	if err != nil {
		t.Fatalf("ValidateTransition() error = %v", err)
	}
	if trigger == "" {
		t.Fatal("ValidateTransition() returned an empty trigger")
	}
}

func TestTransitionService_ApplyTransition(t *testing.T) {
	tests := []struct {
		name        string
		current     workflow.State
		from        workflow.State
		to          workflow.State
		wantErr     error
		wantHistory int
		wantCAS     int
	}{
		{
			name:        "legal transition writes history",
			current:     workflow.StateProcessing,
			from:        workflow.StateProcessing,
			to:          workflow.StateQuoteReady,
			wantHistory: 1,
			wantCAS:     1,
		},
		{
			name:    "illegal transition is rejected before touching the row",
			current: workflow.StateDraft,
			from:    workflow.StateDraft,
			to:      workflow.StateConverted,
			wantErr: workflow.ErrInvalidTransition,
		},
		{
			name:    "terminal state cannot move",
			current: workflow.StateExpired,
			from:    workflow.StateExpired,
			to:      workflow.StateDraft,
			wantErr: workflow.ErrInvalidTransition,
		},
		{
			name:    "stale from status loses the compare-and-set",
			current: workflow.StateReviewRequired,
			from:    workflow.StateProcessing,
			to:      workflow.StateQuoteReady,
			wantErr: workflow.ErrStaleState,
			wantCAS: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarness(testQuote("q-1", tt.current))

			err := h.transitions.ApplyTransition(context.Background(), "q-1", tt.from, tt.to, TransitionMeta{Actor: "tester"})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ApplyTransition() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("ApplyTransition() unexpected error = %v", err)
			}
			if got := len(h.history.history); got != tt.wantHistory {
				t.Errorf("history rows = %d, want %d", got, tt.wantHistory)
			}
			if h.quotes.casCalls != tt.wantCAS {
				t.Errorf("compare-and-set calls = %d, want %d", h.quotes.casCalls, tt.wantCAS)
			}
		})
	}
}

func TestTransitionService_RecordsTriggerActorAndReason(t *testing.T) {
	h := newTestHarness(testQuote("q-1", workflow.StateHITLInReview))

	err := h.transitions.ApplyTransition(context.Background(), "q-1", workflow.StateHITLInReview, workflow.StateAwaitingCustomer, TransitionMeta{
		Actor:    "staff-7",
		Reason:   "blurry passport",
		Metadata: map[string]interface{}{"review_id": "r-1"},
	})
	if err != nil {
		t.Fatalf("ApplyTransition() error = %v", err)
	}

	if len(h.history.history) != 1 {
		t.Fatalf("history rows = %d, want 1", len(h.history.history))
	}
	row := h.history.history[0]
	if row.Trigger != workflow.TriggerRequestBetterScan.String() {
		t.Errorf("trigger = %q, want %q", row.Trigger, workflow.TriggerRequestBetterScan)
	}
	if row.Actor != "staff-7" {
		t.Errorf("actor = %q, want staff-7", row.Actor)
	}
	if !strings.Contains(row.Metadata, `"reason":"blurry passport"`) || !strings.Contains(row.Metadata, `"review_id":"r-1"`) {
		t.Errorf("metadata = %s, want reason and review_id", row.Metadata)
	}
	if h.quotes.status("q-1") != workflow.StateAwaitingCustomer {
		t.Errorf("status = %s, want awaiting_customer", h.quotes.status("q-1"))
	}
	if h.metrics.transitions != 1 {
		t.Errorf("observed transitions = %d, want 1", h.metrics.transitions)
	}
}

func TestTransitionService_HistoryFailureSurfaces(t *testing.T) {
	h := newTestHarness(testQuote("q-1", workflow.StateDraft))
	h.history.createFunc = func(ctx context.Context, history *entity.StatusHistory) error {
		return errors.New("disk full")
	}

	err := h.transitions.ApplyTransition(context.Background(), "q-1", workflow.StateDraft, workflow.StateDetailsPending, TransitionMeta{})
	if err == nil || !strings.Contains(err.Error(), "create history") {
		t.Fatalf("ApplyTransition() error = %v, want create history failure", err)
	}
	if h.metrics.transitions != 0 {
		t.Errorf("observed transitions = %d, want 0 on failure", h.metrics.transitions)
	}
}

func TestTransitionService_TryTransition(t *testing.T) {
	h := newTestHarness(testQuote("q-1", workflow.StateQuoteReady))
	ctx := context.Background()

	applied, err := h.transitions.TryTransition(ctx, "q-1", workflow.StateProcessing, workflow.StateReviewRequired, TransitionMeta{})
	if err != nil {
		t.Fatalf("TryTransition() error = %v", err)
	}
	if applied {
		t.Error("TryTransition() applied = true for a quote that already left processing")
	}
	if h.quotes.status("q-1") != workflow.StateQuoteReady {
		t.Errorf("status = %s, want quote_ready untouched", h.quotes.status("q-1"))
	}

	_, err = h.transitions.TryTransition(ctx, "q-1", workflow.StateQuoteReady, workflow.StateDraft, TransitionMeta{})
	if !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Errorf("TryTransition() error = %v, want ErrInvalidTransition", err)
	}
}

func TestTransitionService_JoinsOuterTransaction(t *testing.T) {
	h := newTestHarness(testQuote("q-1", workflow.StateProcessing))
	ctx := context.Background()

	err := h.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := h.transitions.ApplyTransition(txCtx, "q-1", workflow.StateProcessing, workflow.StateQuoteReady, TransitionMeta{}); err != nil {
			return err
		}
		return h.transitions.ApplyTransition(txCtx, "q-1", workflow.StateQuoteReady, workflow.StateAwaitingPayment, TransitionMeta{})
	})
	if err != nil {
		t.Fatalf("nested transitions error = %v", err)
	}

	want := []string{"processing->quote_ready", "quote_ready->awaiting_payment"}
	got := h.history.path()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("history = %v, want %v", got, want)
	}
}
