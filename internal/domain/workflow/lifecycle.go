package workflow

import (
	"context"
	"fmt"
	"sync"
)

// nonTerminal lists every status that may still expire
var nonTerminal = []State{
	StateDraft,
	StateDetailsPending,
	StateProcessing,
	StateReviewRequired,
	StateQuoteReady,
	StateHITLPending,
	StateHITLInReview,
	StateAwaitingCustomer,
	StateRevisionNeeded,
	StateAwaitingPayment,
	StateCustomerActionAwaited,
}

// QuoteLifecycle returns the builder configured with every legal quote transition.
//
// A rejected HITL review does not move the quote; rejection is recorded on the
// review only, so there is no rejected quote status.
func QuoteLifecycle() StateMachineBuilder {
	b := NewBuilder()

	b.Configure(StateDraft).
		Permit(TriggerSubmitDetails, StateDetailsPending).
		Permit(TriggerStartProcessing, StateProcessing)

	b.Configure(StateDetailsPending).
		Permit(TriggerStartProcessing, StateProcessing)

	b.Configure(StateProcessing).
		Permit(TriggerCompleteProcessing, StateQuoteReady).
		Permit(TriggerFlagForReview, StateReviewRequired).
		Permit(TriggerRequireReview, StateHITLPending)

	// A client timeout may have flipped the quote before the server finished.
	b.Configure(StateReviewRequired).
		Permit(TriggerCompleteProcessing, StateQuoteReady).
		Permit(TriggerStartProcessing, StateProcessing).
		Permit(TriggerRequireReview, StateHITLPending)

	b.Configure(StateQuoteReady).
		Permit(TriggerRequireReview, StateHITLPending).
		Permit(TriggerRequestPayment, StateAwaitingPayment).
		Permit(TriggerRequestRevision, StateRevisionNeeded).
		Permit(TriggerConvert, StateConverted)

	b.Configure(StateHITLPending).
		Permit(TriggerStartReview, StateHITLInReview)

	b.Configure(StateHITLInReview).
		Permit(TriggerApprove, StateQuoteReady).
		Permit(TriggerApproveForPayment, StateAwaitingPayment).
		Permit(TriggerRequestBetterScan, StateAwaitingCustomer).
		Permit(TriggerRequestRevision, StateRevisionNeeded).
		Permit(TriggerRequestCustomerAction, StateCustomerActionAwaited)

	b.Configure(StateAwaitingCustomer).
		Permit(TriggerStartProcessing, StateProcessing)

	b.Configure(StateRevisionNeeded).
		Permit(TriggerStartProcessing, StateProcessing)

	b.Configure(StateCustomerActionAwaited).
		Permit(TriggerStartProcessing, StateProcessing)

	b.Configure(StateAwaitingPayment).
		Permit(TriggerConvert, StateConverted)

	for _, s := range nonTerminal {
		b.Configure(s).Permit(TriggerExpire, StateExpired)
	}

	return b
}

var (
	lifecycleOnce sync.Once
	lifecycle     StateMachineBuilder
)

// quoteLifecycle builds the shared table on first use. Building it in a package-level
// var would run before validStates is populated.
func quoteLifecycle() StateMachineBuilder {
	lifecycleOnce.Do(func() {
		lifecycle = QuoteLifecycle()
	})
	return lifecycle
}

// CanTransition reports whether the quote lifecycle permits moving from one status to another
func CanTransition(from, to State) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	_, ok := quoteLifecycle().Build(from).TriggerFor(to)
	return ok
}

// ValidateTransition returns the trigger for from→to or a wrapped ErrInvalidTransition
func ValidateTransition(ctx context.Context, from, to State) (Trigger, error) {
	if !from.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidState, from)
	}
	if !to.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidState, to)
	}

	m := quoteLifecycle().Build(from)
	trigger, ok := m.TriggerFor(to)
	if !ok {
		return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if err := m.Fire(ctx, trigger); err != nil {
		return "", err
	}
	return trigger, nil
}
