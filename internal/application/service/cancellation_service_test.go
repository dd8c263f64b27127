package service

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/domain/event"
)

type cancellationFixture struct {
	orders        *mockOrderRepo
	cancellations *mockCancellationRepo
	gateway       *mockGateway
	notifier      *mockCancellationNotifier
	publisher     *mockPublisher
	metrics       *mockMetrics
	svc           CancellationService
}

func newCancellationFixture(order *entity.Order) *cancellationFixture {
	f := &cancellationFixture{
		orders:        &mockOrderRepo{},
		cancellations: &mockCancellationRepo{},
		gateway:       &mockGateway{configured: true},
		notifier:      &mockCancellationNotifier{},
		publisher:     &mockPublisher{},
		metrics:       &mockMetrics{},
	}
	if order != nil {
		f.orders.orders = append(f.orders.orders, order)
	}
	f.svc = NewCancellationService(f.orders, f.cancellations, f.gateway, f.notifier, &mockTxManager{}, f.publisher, f.metrics, &mockLogger{})
	return f
}

func paidOrder() *entity.Order {
	return &entity.Order{
		ID:                    "o-1",
		OrderNumber:           "ORD-20261015-AAAAAA",
		QuoteID:               "q-1",
		CustomerEmail:         "ana@example.com",
		TotalAmount:           226,
		AmountPaid:            226,
		Currency:              "cad",
		Status:                entity.OrderStatusActive,
		StripePaymentIntentID: "pi_1",
	}
}

func amount(v float64) *float64 { return &v }

func TestCancellationService_CancelOrder(t *testing.T) {
	tests := []struct {
		name             string
		req              CancelOrderRequest
		refundFunc       func(ctx context.Context, req port.RefundRequest) (*port.RefundResult, error)
		wantAmount       float64
		wantStatus       string
		wantStripeCalls  int
		wantStripeError  bool
		wantRefundMethod string
	}{
		{
			name:             "full stripe refund succeeds",
			req:              CancelOrderRequest{RefundType: entity.RefundTypeFull, RefundMethod: entity.RefundMethodStripe},
			wantAmount:       226,
			wantStatus:       entity.RefundStatusCompleted,
			wantStripeCalls:  1,
			wantRefundMethod: entity.RefundMethodStripe,
		},
		{
			name: "pending stripe refund is processing",
			req:  CancelOrderRequest{RefundType: entity.RefundTypeFull, RefundMethod: entity.RefundMethodStripe},
			refundFunc: func(ctx context.Context, req port.RefundRequest) (*port.RefundResult, error) {
				return &port.RefundResult{RefundID: "re_2", Status: "pending"}, nil
			},
			wantAmount:       226,
			wantStatus:       entity.RefundStatusProcessing,
			wantStripeCalls:  1,
			wantRefundMethod: entity.RefundMethodStripe,
		},
		{
			name: "stripe error still cancels and records the failure",
			req:  CancelOrderRequest{RefundType: entity.RefundTypeFull, RefundMethod: entity.RefundMethodStripe},
			refundFunc: func(ctx context.Context, req port.RefundRequest) (*port.RefundResult, error) {
				return nil, errors.New("charge already refunded")
			},
			wantAmount:       226,
			wantStatus:       entity.RefundStatusFailed,
			wantStripeCalls:  1,
			wantStripeError:  true,
			wantRefundMethod: entity.RefundMethodStripe,
		},
		{
			name:             "partial refund is capped at the amount paid",
			req:              CancelOrderRequest{RefundType: entity.RefundTypePartial, RefundAmount: amount(500), RefundMethod: entity.RefundMethodStripe},
			wantAmount:       226,
			wantStatus:       entity.RefundStatusCompleted,
			wantStripeCalls:  1,
			wantRefundMethod: entity.RefundMethodStripe,
		},
		{
			name:             "manual refund waits for staff",
			req:              CancelOrderRequest{RefundType: entity.RefundTypePartial, RefundAmount: amount(50), RefundMethod: entity.RefundMethodBankTransfer},
			wantAmount:       50,
			wantStatus:       entity.RefundStatusPending,
			wantRefundMethod: entity.RefundMethodBankTransfer,
		},
		{
			name:       "no refund",
			req:        CancelOrderRequest{RefundType: entity.RefundTypeNone},
			wantAmount: 0,
			wantStatus: entity.RefundStatusNotApplicable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCancellationFixture(paidOrder())
			f.gateway.refundFunc = tt.refundFunc
			req := tt.req
			req.OrderID = "o-1"
			req.StaffID = "staff-1"
			req.ReasonCode = entity.ReasonCustomerRequest

			result, err := f.svc.CancelOrder(context.Background(), req)
			if err != nil {
				t.Fatalf("CancelOrder() error = %v", err)
			}

			if !result.Success || result.RefundAmount != tt.wantAmount || result.RefundStatus != tt.wantStatus {
				t.Errorf("result = %+v, want amount %v status %s", result, tt.wantAmount, tt.wantStatus)
			}
			if len(f.gateway.requests) != tt.wantStripeCalls {
				t.Errorf("stripe calls = %d, want %d", len(f.gateway.requests), tt.wantStripeCalls)
			}
			if tt.wantStripeCalls > 0 && f.gateway.requests[0].IdempotencyKey != "cancel-o-1" {
				t.Errorf("idempotency key = %s, want cancel-o-1", f.gateway.requests[0].IdempotencyKey)
			}
			if (result.StripeError != "") != tt.wantStripeError {
				t.Errorf("StripeError = %q, want present=%v", result.StripeError, tt.wantStripeError)
			}

			if len(f.cancellations.created) != 1 {
				t.Fatalf("cancellations = %d, want 1", len(f.cancellations.created))
			}
			c := f.cancellations.created[0]
			if c.RefundStatus != tt.wantStatus || c.RefundMethod != tt.wantRefundMethod {
				t.Errorf("cancellation = %+v, want status %s method %q", c, tt.wantStatus, tt.wantRefundMethod)
			}
			order, _ := f.orders.GetByID(context.Background(), "o-1")
			if !order.IsCancelled() {
				t.Error("order was not cancelled")
			}
			if types := f.publisher.types(); len(types) != 1 || types[0] != event.TypeOrderCancelled {
				t.Errorf("events = %v, want [order.cancelled]", types)
			}
			if len(f.metrics.refunds) != 1 {
				t.Errorf("refund observations = %d, want 1", len(f.metrics.refunds))
			}
		})
	}
}

func TestCancellationService_CancelOrder_Rejected(t *testing.T) {
	cancelled := paidOrder()
	cancelled.Status = entity.OrderStatusCancelled

	tests := []struct {
		name       string
		order      *entity.Order
		configured bool
		req        CancelOrderRequest
		wantErr    error
	}{
		{
			name:       "unknown order",
			configured: true,
			req:        CancelOrderRequest{OrderID: "o-1", StaffID: "s", ReasonCode: entity.ReasonOther, RefundType: entity.RefundTypeNone},
			wantErr:    entity.ErrOrderNotFound,
		},
		{
			name:       "already cancelled",
			order:      cancelled,
			configured: true,
			req:        CancelOrderRequest{OrderID: "o-1", StaffID: "s", ReasonCode: entity.ReasonOther, RefundType: entity.RefundTypeNone},
			wantErr:    entity.ErrOrderAlreadyCancelled,
		},
		{
			name:       "unknown reason code",
			order:      paidOrder(),
			configured: true,
			req:        CancelOrderRequest{OrderID: "o-1", StaffID: "s", ReasonCode: "bored", RefundType: entity.RefundTypeNone},
			wantErr:    entity.ErrValidation,
		},
		{
			name:       "missing staff",
			order:      paidOrder(),
			configured: true,
			req:        CancelOrderRequest{OrderID: "o-1", ReasonCode: entity.ReasonOther, RefundType: entity.RefundTypeNone},
			wantErr:    entity.ErrValidation,
		},
		{
			name:       "zero partial refund",
			order:      paidOrder(),
			configured: true,
			req:        CancelOrderRequest{OrderID: "o-1", StaffID: "s", ReasonCode: entity.ReasonOther, RefundType: entity.RefundTypePartial, RefundAmount: amount(0), RefundMethod: entity.RefundMethodStripe},
			wantErr:    entity.ErrValidation,
		},
		{
			name:       "partial refund without amount",
			order:      paidOrder(),
			configured: true,
			req:        CancelOrderRequest{OrderID: "o-1", StaffID: "s", ReasonCode: entity.ReasonOther, RefundType: entity.RefundTypePartial, RefundMethod: entity.RefundMethodStripe},
			wantErr:    entity.ErrValidation,
		},
		{
			name:       "stripe not configured fails closed",
			order:      paidOrder(),
			configured: false,
			req:        CancelOrderRequest{OrderID: "o-1", StaffID: "s", ReasonCode: entity.ReasonOther, RefundType: entity.RefundTypeFull, RefundMethod: entity.RefundMethodStripe},
			wantErr:    entity.ErrPaymentGatewayUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCancellationFixture(tt.order)
			f.gateway.configured = tt.configured

			_, err := f.svc.CancelOrder(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CancelOrder() error = %v, want %v", err, tt.wantErr)
			}
			if len(f.cancellations.created) != 0 {
				t.Errorf("cancellations = %d, want nothing persisted", len(f.cancellations.created))
			}
			if len(f.gateway.requests) != 0 {
				t.Errorf("stripe calls = %d, want 0", len(f.gateway.requests))
			}
		})
	}
}

func TestCancellationService_CancelOrder_LosesRace(t *testing.T) {
	f := newCancellationFixture(paidOrder())
	f.orders.cancelIfActiveFunc = func(ctx context.Context, id string) (bool, error) {
		return false, nil
	}

	_, err := f.svc.CancelOrder(context.Background(), CancelOrderRequest{
		OrderID: "o-1", StaffID: "s", ReasonCode: entity.ReasonDuplicateOrder, RefundType: entity.RefundTypeNone,
	})
	if !errors.Is(err, entity.ErrOrderAlreadyCancelled) {
		t.Errorf("CancelOrder() error = %v, want ErrOrderAlreadyCancelled", err)
	}
	if len(f.cancellations.created) != 0 {
		t.Errorf("cancellations = %d, want 0", len(f.cancellations.created))
	}
}

func TestCancellationService_CancelOrder_Email(t *testing.T) {
	tests := []struct {
		name         string
		notifyErr    error
		wantSent     bool
		wantEmailErr bool
	}{
		{name: "sent", wantSent: true},
		{name: "delivery failure is reported, not returned", notifyErr: errors.New("brevo 502"), wantEmailErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCancellationFixture(paidOrder())
			f.notifier.err = tt.notifyErr

			result, err := f.svc.CancelOrder(context.Background(), CancelOrderRequest{
				OrderID: "o-1", StaffID: "s", ReasonCode: entity.ReasonOther, RefundType: entity.RefundTypeNone, SendEmail: true,
			})
			if err != nil {
				t.Fatalf("CancelOrder() error = %v", err)
			}
			if result.EmailSent != tt.wantSent || (result.EmailError != "") != tt.wantEmailErr {
				t.Errorf("email sent = %v error = %q", result.EmailSent, result.EmailError)
			}
			if f.notifier.calls != 1 {
				t.Errorf("notifier calls = %d, want 1", f.notifier.calls)
			}
		})
	}
}
