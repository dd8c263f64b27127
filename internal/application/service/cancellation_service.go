package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/domain/event"
	"github.com/garyjia/translation-quotes/internal/domain/pricing"
)

// Stripe refund statuses
const (
	stripeRefundSucceeded = "succeeded"
	stripeRefundPending   = "pending"
)

// CancelOrderRequest is a staff request to cancel a paid order
type CancelOrderRequest struct {
	OrderID     string
	StaffID     string
	ReasonCode  string
	ReasonNotes string
	RefundType  string
	// RefundAmount is required for partial refunds and ignored otherwise
	RefundAmount *float64
	RefundMethod string
	SendEmail    bool
}

// CancelOrderResult reports what happened to the order, the refund and the email
type CancelOrderResult struct {
	Success        bool    `json:"success"`
	CancellationID string  `json:"cancellationId"`
	RefundStatus   string  `json:"refundStatus"`
	RefundAmount   float64 `json:"refundAmount"`
	StripeRefundID string  `json:"stripeRefundId,omitempty"`
	StripeError    string  `json:"stripeError,omitempty"`
	EmailSent      bool    `json:"emailSent"`
	EmailError     string  `json:"emailError,omitempty"`
}

// CancellationNotifier sends the cancellation email while the request waits
type CancellationNotifier interface {
	NotifyOrderCancelled(ctx context.Context, order *entity.Order, cancellation *entity.OrderCancellation) error
}

// CancellationService cancels orders and issues refunds
type CancellationService interface {
	CancelOrder(ctx context.Context, req CancelOrderRequest) (*CancelOrderResult, error)
	ListCancellations(ctx context.Context, orderID string) ([]*entity.OrderCancellation, error)
}

type cancellationServiceImpl struct {
	orderRepo        port.OrderRepository
	cancellationRepo port.CancellationRepository
	gateway          port.PaymentGateway
	notifier         CancellationNotifier
	txManager        port.TransactionManager
	publisher        EventPublisher
	metrics          Metrics
	logger           Logger
}

// NewCancellationService creates a new CancellationService.
// gateway and notifier may be nil; a nil gateway rejects Stripe refunds.
func NewCancellationService(
	orderRepo port.OrderRepository,
	cancellationRepo port.CancellationRepository,
	gateway port.PaymentGateway,
	notifier CancellationNotifier,
	txManager port.TransactionManager,
	publisher EventPublisher,
	metrics Metrics,
	logger Logger,
) CancellationService {
	return &cancellationServiceImpl{
		orderRepo:        orderRepo,
		cancellationRepo: cancellationRepo,
		gateway:          gateway,
		notifier:         notifier,
		txManager:        txManager,
		publisher:        orNopPublisher(publisher),
		metrics:          orNopMetrics(metrics),
		logger:           orNopLogger(logger),
	}
}

// CancelOrder validates the request, refunds through the gateway when asked,
// then records the cancellation and flips the order in one transaction.
func (s *cancellationServiceImpl) CancelOrder(ctx context.Context, req CancelOrderRequest) (*CancelOrderResult, error) {
	if err := validateCancelRequest(req); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, entity.ErrOrderNotFound
	}
	if order.IsCancelled() {
		return nil, entity.ErrOrderAlreadyCancelled
	}

	amount, err := refundAmount(req, order.AmountPaid)
	if err != nil {
		return nil, err
	}

	cancellation := &entity.OrderCancellation{
		ID:           uuid.New().String(),
		OrderID:      order.ID,
		StaffID:      req.StaffID,
		ReasonCode:   req.ReasonCode,
		ReasonNotes:  strings.TrimSpace(req.ReasonNotes),
		RefundType:   req.RefundType,
		RefundAmount: amount,
		RefundStatus: entity.RefundStatusNotApplicable,
		CreatedAt:    time.Now(),
	}
	if amount > 0 {
		cancellation.RefundMethod = req.RefundMethod
		cancellation.RefundStatus = entity.RefundStatusPending
	}

	if amount > 0 && req.RefundMethod == entity.RefundMethodStripe {
		if s.gateway == nil || !s.gateway.Configured() {
			return nil, entity.ErrPaymentGatewayUnavailable
		}
		if order.StripePaymentIntentID == "" {
			return nil, fmt.Errorf("%w: order has no stripe payment to refund", entity.ErrValidation)
		}
		s.refund(ctx, order, cancellation)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		flipped, err := s.orderRepo.CancelIfActive(txCtx, order.ID)
		if err != nil {
			return err
		}
		if !flipped {
			return entity.ErrOrderAlreadyCancelled
		}
		return s.cancellationRepo.Create(txCtx, cancellation)
	})
	if err != nil {
		s.logger.Error("Failed to record cancellation", "error", err, "order_id", order.ID,
			"stripe_refund_id", cancellation.StripeRefundID)
		return nil, err
	}
	order.Status = entity.OrderStatusCancelled

	result := &CancelOrderResult{
		Success:        true,
		CancellationID: cancellation.ID,
		RefundStatus:   cancellation.RefundStatus,
		RefundAmount:   cancellation.RefundAmount,
		StripeRefundID: cancellation.StripeRefundID,
		StripeError:    cancellation.StripeError,
	}

	if req.SendEmail {
		if s.notifier == nil {
			result.EmailError = "email is not configured"
		} else if err := s.notifier.NotifyOrderCancelled(ctx, order, cancellation); err != nil {
			s.logger.Error("Failed to send cancellation email", "error", err, "order_id", order.ID)
			result.EmailError = err.Error()
		} else {
			result.EmailSent = true
		}
	}

	s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeOrderCancelled, order.QuoteID, map[string]interface{}{
		event.KeyOrderID:      order.ID,
		event.KeyOrderNumber:  order.OrderNumber,
		event.KeyRefundAmount: cancellation.RefundAmount,
		event.KeyRefundStatus: cancellation.RefundStatus,
	}))
	s.metrics.ObserveRefund(cancellation.RefundMethod, cancellation.RefundStatus)

	s.logger.Info("Order cancelled", "order_id", order.ID, "cancellation_id", cancellation.ID,
		"refund_amount", cancellation.RefundAmount, "refund_status", cancellation.RefundStatus,
		"staff_id", req.StaffID)
	return result, nil
}

// ListCancellations returns the cancellation records of an order
func (s *cancellationServiceImpl) ListCancellations(ctx context.Context, orderID string) ([]*entity.OrderCancellation, error) {
	return s.cancellationRepo.ListByOrderID(ctx, orderID)
}

// refund calls the gateway and records the outcome on the cancellation.
// A gateway error is recorded, not returned: the order is still cancelled.
func (s *cancellationServiceImpl) refund(ctx context.Context, order *entity.Order, c *entity.OrderCancellation) {
	res, err := s.gateway.Refund(ctx, port.RefundRequest{
		PaymentIntentID: order.StripePaymentIntentID,
		Amount:          c.RefundAmount,
		Currency:        order.Currency,
		OrderID:         order.ID,
		Reason:          c.ReasonCode,
		IdempotencyKey:  "cancel-" + order.ID,
	})
	if err != nil {
		s.logger.Error("Stripe refund failed", "error", err, "order_id", order.ID, "amount", c.RefundAmount)
		c.RefundStatus = entity.RefundStatusFailed
		c.StripeError = err.Error()
		return
	}

	c.StripeRefundID = res.RefundID
	c.RefundStatus = refundStatusFor(res.Status)
	s.logger.Info("Stripe refund issued", "order_id", order.ID, "refund_id", res.RefundID, "status", res.Status)
}

func refundStatusFor(stripeStatus string) string {
	switch stripeStatus {
	case stripeRefundSucceeded:
		return entity.RefundStatusCompleted
	case stripeRefundPending:
		return entity.RefundStatusProcessing
	default:
		return entity.RefundStatusFailed
	}
}

func validateCancelRequest(req CancelOrderRequest) error {
	if strings.TrimSpace(req.OrderID) == "" {
		return fmt.Errorf("%w: order id is required", entity.ErrValidation)
	}
	if strings.TrimSpace(req.StaffID) == "" {
		return fmt.Errorf("%w: staff id is required", entity.ErrValidation)
	}
	if !entity.IsValidReasonCode(req.ReasonCode) {
		return fmt.Errorf("%w: unknown reason code %q", entity.ErrValidation, req.ReasonCode)
	}
	switch req.RefundType {
	case entity.RefundTypeNone:
		return nil
	case entity.RefundTypeFull, entity.RefundTypePartial:
	default:
		return fmt.Errorf("%w: unknown refund type %q", entity.ErrValidation, req.RefundType)
	}
	if !entity.IsValidRefundMethod(req.RefundMethod) {
		return fmt.Errorf("%w: unknown refund method %q", entity.ErrValidation, req.RefundMethod)
	}
	if req.RefundType == entity.RefundTypePartial && req.RefundAmount == nil {
		return fmt.Errorf("%w: partial refund requires an amount", entity.ErrValidation)
	}
	return nil
}

// refundAmount caps partial refunds at what the customer paid
func refundAmount(req CancelOrderRequest, paid float64) (float64, error) {
	switch req.RefundType {
	case entity.RefundTypeFull:
		return pricing.RoundCents(paid), nil
	case entity.RefundTypePartial:
		amount := pricing.RoundCents(*req.RefundAmount)
		if amount > paid {
			amount = pricing.RoundCents(paid)
		}
		if amount <= 0 {
			return 0, fmt.Errorf("%w: partial refund must be greater than zero", entity.ErrValidation)
		}
		return amount, nil
	default:
		return 0, nil
	}
}
