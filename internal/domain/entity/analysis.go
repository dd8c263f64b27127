package entity

import (
	"time"

	"github.com/garyjia/translation-quotes/internal/domain/hitl"
	"github.com/garyjia/translation-quotes/internal/domain/pricing"
)

// AIAnalysisResult is the analysis and pricing output for one quote file
type AIAnalysisResult struct {
	ID                     string             `json:"id"`
	QuoteID                string             `json:"quote_id"`
	QuoteFileID            string             `json:"quote_file_id"`
	DetectedLanguage       string             `json:"detected_language"`
	DetectedDocumentType   string             `json:"detected_document_type"`
	WordCount              int                `json:"word_count"`
	PageCount              int                `json:"page_count"`
	BillablePages          float64            `json:"billable_pages"`
	AssessedComplexity     pricing.Complexity `json:"assessed_complexity"`
	ComplexityMultiplier   float64            `json:"complexity_multiplier"`
	OCRConfidence          *float64           `json:"ocr_confidence,omitempty"`
	LanguageConfidence     *float64           `json:"language_confidence,omitempty"`
	DocumentTypeConfidence *float64           `json:"document_type_confidence,omitempty"`
	ComplexityConfidence   *float64           `json:"complexity_confidence,omitempty"`
	BaseRate               float64            `json:"base_rate"`
	LineTotal              float64            `json:"line_total"`
	CertificationTypeID    string             `json:"certification_type_id,omitempty"`
	CertificationPrice     float64            `json:"certification_price"`
	Notes                  string             `json:"notes,omitempty"`
	IsStaffOverride        bool               `json:"is_staff_override"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// Signal converts the row into gate input
func (a *AIAnalysisResult) Signal() hitl.Signal {
	return hitl.Signal{
		OCRConfidence:          a.OCRConfidence,
		LanguageConfidence:     a.LanguageConfidence,
		DocumentTypeConfidence: a.DocumentTypeConfidence,
		ComplexityConfidence:   a.ComplexityConfidence,
		BillablePages:          a.BillablePages,
		Value:                  a.LineTotal + a.CertificationPrice,
	}
}

// PricingLine converts the row into a priced line for aggregation
func (a *AIAnalysisResult) PricingLine() pricing.Line {
	return pricing.Line{
		BillablePages:      a.BillablePages,
		LineTotal:          a.LineTotal,
		CertificationPrice: a.CertificationPrice,
	}
}
