package stripe

import (
	"context"
	"errors"
	"fmt"
	"math"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/port"
)

// Config holds Stripe credentials
type Config struct {
	SecretKey     string
	WebhookSecret string
}

// refundCreator is the Refunds.New call of the Stripe client
type refundCreator func(params *stripe.RefundParams) (*stripe.Refund, error)

// Gateway implements port.PaymentGateway with Stripe refunds
type Gateway struct {
	createRefund refundCreator
	configured   bool
	logger       *zap.Logger
}

// NewGateway creates a gateway. Without a secret key it reports itself unconfigured.
func NewGateway(cfg Config, logger *zap.Logger) *Gateway {
	g := &Gateway{configured: cfg.SecretKey != "", logger: logger}
	if g.configured {
		api := client.New(cfg.SecretKey, nil)
		g.createRefund = api.Refunds.New
	}
	return g
}

var _ port.PaymentGateway = (*Gateway)(nil)

// Configured reports whether refunds can be issued
func (g *Gateway) Configured() bool {
	return g.configured
}

// Refund refunds part or all of a payment intent. The idempotency key makes
// retried cancellations return the original refund.
func (g *Gateway) Refund(ctx context.Context, req port.RefundRequest) (*port.RefundResult, error) {
	if !g.configured {
		return nil, errors.New("stripe is not configured")
	}
	if req.PaymentIntentID == "" {
		return nil, errors.New("payment intent id is required")
	}
	cents := toMinorUnits(req.Amount)
	if cents <= 0 {
		return nil, fmt.Errorf("refund amount must be positive, got %.2f", req.Amount)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentIntentID),
		Amount:        stripe.Int64(cents),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.AddMetadata("order_id", req.OrderID)
	if req.Reason != "" {
		params.AddMetadata("cancellation_reason", req.Reason)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	refund, err := g.createRefund(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			g.logger.Error("Stripe refund rejected",
				zap.String("order_id", req.OrderID),
				zap.String("code", string(stripeErr.Code)),
				zap.String("message", stripeErr.Msg))
			return nil, fmt.Errorf("stripe refund: %s", stripeErr.Msg)
		}
		g.logger.Error("Stripe refund failed", zap.String("order_id", req.OrderID), zap.Error(err))
		return nil, fmt.Errorf("stripe refund: %w", err)
	}

	g.logger.Info("Stripe refund created",
		zap.String("order_id", req.OrderID),
		zap.String("refund_id", refund.ID),
		zap.String("status", string(refund.Status)),
		zap.Int64("amount_cents", cents))
	return &port.RefundResult{RefundID: refund.ID, Status: string(refund.Status)}, nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromMinorUnits(cents int64) float64 {
	return float64(cents) / 100
}
