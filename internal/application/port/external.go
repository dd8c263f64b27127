package port

import (
	"context"

	"github.com/garyjia/translation-quotes/internal/domain/pricing"
)

// AnalysisInput is one document sent to the vision model
type AnalysisInput struct {
	FileName  string
	MimeType  string
	Content   []byte
	PriorText string
	// GroupHint describes other documents in the same quote
	GroupHint string
}

// DocumentAnalysis is the normalized vision model output
type DocumentAnalysis struct {
	DetectedLanguage       string             `json:"detected_language"`
	DocumentType           string             `json:"document_type"`
	Complexity             pricing.Complexity `json:"complexity"`
	WordCount              int                `json:"word_count"`
	PageCount              int                `json:"page_count"`
	OCRConfidence          float64            `json:"ocr_confidence"`
	LanguageConfidence     float64            `json:"language_confidence"`
	DocumentTypeConfidence float64            `json:"document_type_confidence"`
	ComplexityConfidence   float64            `json:"complexity_confidence"`
	Notes                  string             `json:"notes,omitempty"`
	// Degraded is set when the result is a fallback rather than a model answer
	Degraded bool `json:"degraded"`
}

// DocumentAnalyzer wraps the vision inference service.
// Provider failures produce a degraded result and a nil error; only unparseable output is an error.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, in AnalysisInput) (*DocumentAnalysis, error)
}

// EmailMessage is a transactional email to one recipient
type EmailMessage struct {
	ToEmail     string
	ToName      string
	Subject     string
	HTMLContent string
	TextContent string
	Tags        []string
}

// EmailSender sends transactional email
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// ReviewAlert is the staff notification for a newly opened review
type ReviewAlert struct {
	QuoteID        string
	QuoteNumber    string
	ReviewID       string
	Priority       int
	TriggerReasons []string
	Reason         string
}

// StaffNotifier posts alerts to the staff chat
type StaffNotifier interface {
	NotifyReview(ctx context.Context, alert ReviewAlert) error
}

// RefundRequest asks the payment gateway to refund part of a payment
type RefundRequest struct {
	PaymentIntentID string
	Amount          float64
	Currency        string
	OrderID         string
	Reason          string
	IdempotencyKey  string
}

// RefundResult is the gateway's answer
type RefundResult struct {
	RefundID string
	Status   string
}

// PaymentGateway processes electronic refunds
type PaymentGateway interface {
	Configured() bool
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

// PaymentSucceeded is a verified payment confirmation from the gateway webhook
type PaymentSucceeded struct {
	EventID         string
	PaymentIntentID string
	QuoteID         string
	AmountReceived  float64
	Currency        string
}

// PaymentWebhookVerifier authenticates and decodes gateway webhooks.
// It returns (nil, nil) for event types the service ignores.
type PaymentWebhookVerifier interface {
	ParsePaymentSucceeded(payload []byte, signatureHeader string) (*PaymentSucceeded, error)
}
