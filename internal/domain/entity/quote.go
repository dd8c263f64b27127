package entity

import (
	"time"

	"github.com/garyjia/translation-quotes/internal/domain/pricing"
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
)

// Quote is a translation price estimate in progress
type Quote struct {
	ID                 string                    `json:"id"`
	QuoteNumber        string                    `json:"quote_number"`
	Status             workflow.State            `json:"status"`
	ProcessingStatus   workflow.ProcessingStatus `json:"processing_status,omitempty"`
	CustomerEmail      string                    `json:"customer_email,omitempty"`
	CustomerName       string                    `json:"customer_name,omitempty"`
	SourceLanguage     string                    `json:"source_language,omitempty"`
	TargetLanguage     string                    `json:"target_language,omitempty"`
	IsRush             bool                      `json:"is_rush"`
	DeliveryFee        float64                   `json:"delivery_fee"`
	Subtotal           float64                   `json:"subtotal"`
	CertificationTotal float64                   `json:"certification_total"`
	TaxRate            float64                   `json:"tax_rate"`
	TaxAmount          float64                   `json:"tax_amount"`
	Total              float64                   `json:"total"`
	CalculatedTotals   *pricing.Breakdown        `json:"calculated_totals,omitempty"`
	Version            int                       `json:"version"`
	EntryPoint         string                    `json:"entry_point"`
	ExpiresAt          time.Time                 `json:"expires_at"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// ApplyBreakdown copies a computed breakdown into the persisted totals.
// Subtotal excludes certification so that Total = Subtotal + CertificationTotal + TaxAmount.
func (q *Quote) ApplyBreakdown(b pricing.Breakdown) {
	q.Subtotal = pricing.RoundCents(b.Subtotal - b.CertificationTotal)
	q.CertificationTotal = b.CertificationTotal
	q.TaxAmount = b.TaxAmount
	q.Total = b.Total
	bb := b
	q.CalculatedTotals = &bb
}

// TotalsConsistent reports whether total == subtotal + certification_total + tax_amount within a cent
func (q *Quote) TotalsConsistent() bool {
	diff := q.Total - (q.Subtotal + q.CertificationTotal + q.TaxAmount)
	return diff > -0.01 && diff < 0.01
}

// IsExpired returns true when the validity window has elapsed
func (q *Quote) IsExpired(now time.Time) bool {
	return !q.ExpiresAt.IsZero() && now.After(q.ExpiresAt)
}

// QuoteVersion is the snapshot written every time staff edits a quote
type QuoteVersion struct {
	ID        string    `json:"id"`
	QuoteID   string    `json:"quote_id"`
	Version   int       `json:"version"`
	Snapshot  string    `json:"snapshot"`
	ChangedBy string    `json:"changed_by"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusHistory is one row of the quote transition audit log
type StatusHistory struct {
	ID         string         `json:"id"`
	QuoteID    string         `json:"quote_id"`
	FromStatus workflow.State `json:"from_status"`
	ToStatus   workflow.State `json:"to_status"`
	Trigger    string         `json:"trigger"`
	Actor      string         `json:"actor,omitempty"`
	Metadata   string         `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
