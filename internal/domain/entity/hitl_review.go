package entity

import "time"

// HITLReview flags a quote for staff approval. At most one open review exists per quote.
type HITLReview struct {
	ID              string     `json:"id"`
	QuoteID         string     `json:"quote_id"`
	Status          string     `json:"status"`
	Priority        int        `json:"priority"`
	TriggerReasons  []string   `json:"trigger_reasons"`
	SLADeadline     time.Time  `json:"sla_deadline"`
	AssignedTo      string     `json:"assigned_to,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	ResolvedBy      string     `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsOpen returns true while staff have not closed the review
func (r *HITLReview) IsOpen() bool {
	return r.Status == ReviewStatusPending || r.Status == ReviewStatusInProgress
}

// IsOverdue returns true when an open review has passed its SLA
func (r *HITLReview) IsOverdue(now time.Time) bool {
	return r.IsOpen() && now.After(r.SLADeadline)
}

// HITLThreshold is one row of the threshold configuration table
type HITLThreshold struct {
	Key       string    `json:"key"`
	Value     float64   `json:"value"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}
