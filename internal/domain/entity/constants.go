package entity

// Quote file processing status constants
const (
	FileStatusPending    = "pending"
	FileStatusProcessing = "processing"
	FileStatusCompleted  = "completed"
	FileStatusFailed     = "failed"
	FileStatusSkipped    = "skipped"
)

// Supported upload MIME types
const (
	MimeTypePDF  = "application/pdf"
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeWebP = "image/webp"
)

// HITL review status constants. Approval closes the review and is reflected on the quote.
const (
	ReviewStatusPending          = "pending"
	ReviewStatusInProgress       = "in_progress"
	ReviewStatusAwaitingCustomer = "awaiting_customer"
	ReviewStatusApproved         = "approved"
	ReviewStatusRejected         = "rejected"
)

// Order status constants
const (
	OrderStatusActive    = "active"
	OrderStatusCancelled = "cancelled"
)

// Order work status constants
const (
	WorkStatusQueued     = "queued"
	WorkStatusInProgress = "in_progress"
	WorkStatusDelivered  = "delivered"
)

// Refund type constants
const (
	RefundTypeFull    = "full"
	RefundTypePartial = "partial"
	RefundTypeNone    = "none"
)

// Refund method constants. Only stripe is processed electronically.
const (
	RefundMethodStripe       = "stripe"
	RefundMethodBankTransfer = "bank_transfer"
	RefundMethodCheque       = "cheque"
	RefundMethodStoreCredit  = "store_credit"
	RefundMethodOther        = "other"
)

// Refund status constants
const (
	RefundStatusNotApplicable = "not_applicable"
	RefundStatusPending       = "pending"
	RefundStatusProcessing    = "processing"
	RefundStatusCompleted     = "completed"
	RefundStatusFailed        = "failed"
)

// Cancellation reason codes
const (
	ReasonCustomerRequest    = "customer_request"
	ReasonDuplicateOrder     = "duplicate_order"
	ReasonPaymentIssue       = "payment_issue"
	ReasonDocumentIssue      = "document_issue"
	ReasonServiceUnavailable = "service_unavailable"
	ReasonFraudSuspected     = "fraud_suspected"
	ReasonOther              = "other"
)

var validReasonCodes = map[string]bool{
	ReasonCustomerRequest:    true,
	ReasonDuplicateOrder:     true,
	ReasonPaymentIssue:       true,
	ReasonDocumentIssue:      true,
	ReasonServiceUnavailable: true,
	ReasonFraudSuspected:     true,
	ReasonOther:              true,
}

var validRefundMethods = map[string]bool{
	RefundMethodStripe:       true,
	RefundMethodBankTransfer: true,
	RefundMethodCheque:       true,
	RefundMethodStoreCredit:  true,
	RefundMethodOther:        true,
}

// IsValidReasonCode returns true if the cancellation reason code is known
func IsValidReasonCode(code string) bool {
	return validReasonCodes[code]
}

// IsValidRefundMethod returns true if the refund method is known
func IsValidRefundMethod(method string) bool {
	return validRefundMethods[method]
}

// Quote entry points
const (
	EntryPointWebsite = "website"
	EntryPointAdmin   = "admin"
	EntryPointPartner = "partner"
)
