package workflow

// State is a quote lifecycle status as stored in quotes.status
type State string

const (
	StateDraft                 State = "draft"
	StateDetailsPending        State = "details_pending"
	StateProcessing            State = "processing"
	StateReviewRequired        State = "review_required"
	StateQuoteReady            State = "quote_ready"
	StateHITLPending           State = "hitl_pending"
	StateHITLInReview          State = "hitl_in_review"
	StateAwaitingCustomer      State = "awaiting_customer"
	StateRevisionNeeded        State = "revision_needed"
	StateAwaitingPayment       State = "awaiting_payment"
	StateConverted             State = "converted"
	StateExpired               State = "expired"
	StateCustomerActionAwaited State = "customer_action_awaited"
)

// AllStates lists every quote status in lifecycle order
var AllStates = []State{
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
	StateConverted,
	StateExpired,
}

var validStates = func() map[State]bool {
	m := make(map[State]bool, len(AllStates))
	for _, s := range AllStates {
		m[s] = true
	}
	return m
}()

var terminalStates = map[State]bool{
	StateConverted: true,
	StateExpired:   true,
}

// IsTerminal returns true if no further transitions are allowed from the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known quote status
func (s State) IsValid() bool {
	return validStates[s]
}

// ProcessingStatus is the analysis sub-state polled by the customer while files are analyzed
type ProcessingStatus string

const (
	ProcessingStatusProcessing     ProcessingStatus = "processing"
	ProcessingStatusReviewRequired ProcessingStatus = "review_required"
	ProcessingStatusQuoteReady     ProcessingStatus = "quote_ready"
)

// ProcessingStatusFor derives the polled sub-state that accompanies a quote status.
// The second return value is false when the status carries no processing sub-state.
func ProcessingStatusFor(s State) (ProcessingStatus, bool) {
	switch s {
	case StateProcessing:
		return ProcessingStatusProcessing, true
	case StateReviewRequired, StateHITLPending, StateHITLInReview:
		return ProcessingStatusReviewRequired, true
	case StateQuoteReady, StateAwaitingPayment:
		return ProcessingStatusQuoteReady, true
	}
	return "", false
}
