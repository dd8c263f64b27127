// Package hitl decides whether analysed quotes may be auto-approved or need staff review.
package hitl

import (
	"sort"
	"time"
)

// ThresholdKey names one row of the hitl_thresholds table
type ThresholdKey string

const (
	KeyOCRConfidenceMin            ThresholdKey = "ocr_confidence_min"
	KeyLanguageConfidenceMin       ThresholdKey = "language_confidence_min"
	KeyClassificationConfidenceMin ThresholdKey = "classification_confidence_min"
	KeyComplexityConfidenceMin     ThresholdKey = "complexity_confidence_min"
	KeyMaxAutoApprovePages         ThresholdKey = "max_auto_approve_pages"
	KeyMaxAutoApproveValue         ThresholdKey = "max_auto_approve_value"
)

// KnownKeys lists the threshold keys the gate evaluates
var KnownKeys = []ThresholdKey{
	KeyOCRConfidenceMin,
	KeyLanguageConfidenceMin,
	KeyClassificationConfidenceMin,
	KeyComplexityConfidenceMin,
	KeyMaxAutoApprovePages,
	KeyMaxAutoApproveValue,
}

// TriggerReason is a code stored on the review explaining why it was opened
type TriggerReason string

const (
	ReasonLowOCRConfidence            TriggerReason = "low_ocr_confidence"
	ReasonLowLanguageConfidence       TriggerReason = "low_language_confidence"
	ReasonLowClassificationConfidence TriggerReason = "low_classification_confidence"
	ReasonLowComplexityConfidence     TriggerReason = "low_complexity_confidence"
	ReasonHighPageCount               TriggerReason = "high_page_count"
	ReasonHighOrderValue              TriggerReason = "high_order_value"
)

const (
	basePriority = 5
	minPriority  = 1
	maxPriority  = 10

	// DefaultSLA is the time staff have to pick up a review
	DefaultSLA = 4 * time.Hour
)

// Thresholds holds the configured limits. Keys that are absent impose no constraint.
type Thresholds map[ThresholdKey]float64

// ParseThresholds keeps only the keys the gate understands
func ParseThresholds(rows map[string]float64) Thresholds {
	th := make(Thresholds, len(rows))
	for _, k := range KnownKeys {
		if v, ok := rows[string(k)]; ok {
			th[k] = v
		}
	}
	return th
}

// Signal is the per-file input to the gate. Nil confidences were not reported by analysis.
type Signal struct {
	OCRConfidence          *float64
	LanguageConfidence     *float64
	DocumentTypeConfidence *float64
	ComplexityConfidence   *float64
	BillablePages          float64
	Value                  float64
}

// Aggregate is the worst-case view across all files of a quote
type Aggregate struct {
	MinOCRConfidence          *float64 `json:"min_ocr_confidence,omitempty"`
	MinLanguageConfidence     *float64 `json:"min_language_confidence,omitempty"`
	MinDocumentTypeConfidence *float64 `json:"min_document_type_confidence,omitempty"`
	MinComplexityConfidence   *float64 `json:"min_complexity_confidence,omitempty"`
	TotalPages                float64  `json:"total_pages"`
	TotalValue                float64  `json:"total_value"`
}

// Evaluation is the gate decision
type Evaluation struct {
	Passed    bool            `json:"passed"`
	Reasons   []TriggerReason `json:"trigger_reasons"`
	Priority  int             `json:"priority"`
	Aggregate Aggregate       `json:"aggregate"`
}

// AggregateSignals takes the minimum of every confidence dimension and sums pages and value
func AggregateSignals(signals []Signal) Aggregate {
	var agg Aggregate
	for _, s := range signals {
		agg.MinOCRConfidence = minPtr(agg.MinOCRConfidence, s.OCRConfidence)
		agg.MinLanguageConfidence = minPtr(agg.MinLanguageConfidence, s.LanguageConfidence)
		agg.MinDocumentTypeConfidence = minPtr(agg.MinDocumentTypeConfidence, s.DocumentTypeConfidence)
		agg.MinComplexityConfidence = minPtr(agg.MinComplexityConfidence, s.ComplexityConfidence)
		agg.TotalPages += s.BillablePages
		agg.TotalValue += s.Value
	}
	return agg
}

// Evaluate compares the aggregate against every configured threshold.
// No signals or no thresholds always pass.
func Evaluate(signals []Signal, th Thresholds) Evaluation {
	agg := AggregateSignals(signals)
	if len(signals) == 0 || len(th) == 0 {
		return Evaluation{Passed: true, Reasons: []TriggerReason{}, Aggregate: agg}
	}

	var reasons []TriggerReason
	checkMin := func(key ThresholdKey, observed *float64, reason TriggerReason) {
		limit, ok := th[key]
		if !ok || observed == nil {
			return
		}
		if *observed < limit {
			reasons = append(reasons, reason)
		}
	}
	checkMax := func(key ThresholdKey, observed float64, reason TriggerReason) {
		limit, ok := th[key]
		if !ok {
			return
		}
		if observed > limit {
			reasons = append(reasons, reason)
		}
	}

	checkMin(KeyOCRConfidenceMin, agg.MinOCRConfidence, ReasonLowOCRConfidence)
	checkMin(KeyLanguageConfidenceMin, agg.MinLanguageConfidence, ReasonLowLanguageConfidence)
	checkMin(KeyClassificationConfidenceMin, agg.MinDocumentTypeConfidence, ReasonLowClassificationConfidence)
	checkMin(KeyComplexityConfidenceMin, agg.MinComplexityConfidence, ReasonLowComplexityConfidence)
	checkMax(KeyMaxAutoApprovePages, agg.TotalPages, ReasonHighPageCount)
	checkMax(KeyMaxAutoApproveValue, agg.TotalValue, ReasonHighOrderValue)

	if len(reasons) == 0 {
		return Evaluation{Passed: true, Reasons: []TriggerReason{}, Aggregate: agg}
	}

	return Evaluation{
		Passed:    false,
		Reasons:   reasons,
		Priority:  Priority(reasons),
		Aggregate: agg,
	}
}

// Priority maps trigger reasons to a review priority, lower is more urgent
func Priority(reasons []TriggerReason) int {
	p := basePriority
	switch {
	case len(reasons) >= 3:
		p = 3
	case len(reasons) >= 2:
		p = 4
	}
	for _, r := range reasons {
		if r == ReasonHighOrderValue {
			p--
			break
		}
	}
	if p < minPriority {
		return minPriority
	}
	if p > maxPriority {
		return maxPriority
	}
	return p
}

// SLADeadline returns when an open review must be picked up
func SLADeadline(openedAt time.Time, sla time.Duration) time.Time {
	if sla <= 0 {
		sla = DefaultSLA
	}
	return openedAt.Add(sla)
}

// ReasonStrings converts reasons for storage and JSON responses
func ReasonStrings(reasons []TriggerReason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}

// MergeReasons returns the sorted union of two reason lists
func MergeReasons(a []string, b []TriggerReason) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, r := range a {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for _, r := range b {
		if !seen[string(r)] {
			seen[string(r)] = true
			out = append(out, string(r))
		}
	}
	sort.Strings(out)
	return out
}

func minPtr(current, candidate *float64) *float64 {
	if candidate == nil {
		return current
	}
	if current == nil || *candidate < *current {
		v := *candidate
		return &v
	}
	return current
}
