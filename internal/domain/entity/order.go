package entity

import "time"

// Order is a converted, paid quote
type Order struct {
	ID                    string    `json:"id"`
	OrderNumber           string    `json:"order_number"`
	QuoteID               string    `json:"quote_id"`
	CustomerEmail         string    `json:"customer_email,omitempty"`
	CustomerName          string    `json:"customer_name,omitempty"`
	TotalAmount           float64   `json:"total_amount"`
	AmountPaid            float64   `json:"amount_paid"`
	Currency              string    `json:"currency"`
	Status                string    `json:"status"`
	WorkStatus            string    `json:"work_status"`
	StripePaymentIntentID string    `json:"stripe_payment_intent_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// IsCancelled returns true if the order was already cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

// OrderCancellation records one cancellation and its refund decision
type OrderCancellation struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"order_id"`
	StaffID        string    `json:"staff_id"`
	ReasonCode     string    `json:"reason_code"`
	ReasonNotes    string    `json:"reason_notes,omitempty"`
	RefundType     string    `json:"refund_type"`
	RefundAmount   float64   `json:"refund_amount"`
	RefundMethod   string    `json:"refund_method,omitempty"`
	RefundStatus   string    `json:"refund_status"`
	StripeRefundID string    `json:"stripe_refund_id,omitempty"`
	StripeError    string    `json:"stripe_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
