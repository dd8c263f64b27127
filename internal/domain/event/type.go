package event

// Type identifies the type of domain event
type Type string

const (
	TypeQuoteReady          Type = "quote.ready"
	TypeQuoteReviewRequired Type = "quote.review_required"
	TypeQuoteStatusChanged  Type = "quote.status_changed"
	TypeQuoteConverted      Type = "quote.converted"
	TypeBetterScanRequested Type = "quote.better_scan_requested"
	TypePaymentRequested    Type = "payment.requested"
	TypeOrderCancelled      Type = "order.cancelled"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeQuoteReady,
		TypeQuoteReviewRequired,
		TypeQuoteStatusChanged,
		TypeQuoteConverted,
		TypeBetterScanRequested,
		TypePaymentRequested,
		TypeOrderCancelled:
		return true
	default:
		return false
	}
}

// AllTypes lists every event type the system publishes
func AllTypes() []Type {
	return []Type{
		TypeQuoteReady,
		TypeQuoteReviewRequired,
		TypeQuoteStatusChanged,
		TypeQuoteConverted,
		TypeBetterScanRequested,
		TypePaymentRequested,
		TypeOrderCancelled,
	}
}
