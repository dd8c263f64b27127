package stripe

import (
	"encoding/json"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/garyjia/translation-quotes/internal/application/port"
)

// ErrInvalidSignature is returned when a webhook cannot be authenticated
var ErrInvalidSignature = errors.New("invalid stripe webhook signature")

// WebhookVerifier implements port.PaymentWebhookVerifier
type WebhookVerifier struct {
	secret string
}

// NewWebhookVerifier creates a verifier for the endpoint signing secret
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	if secret == "" {
		return nil, errors.New("stripe webhook secret is required")
	}
	return &WebhookVerifier{secret: secret}, nil
}

var _ port.PaymentWebhookVerifier = (*WebhookVerifier)(nil)

// ParsePaymentSucceeded verifies the signature and decodes payment_intent.succeeded.
// Other event types return (nil, nil).
func (v *WebhookVerifier) ParsePaymentSucceeded(payload []byte, signatureHeader string) (*port.PaymentSucceeded, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if evt.Type != stripe.EventTypePaymentIntentSucceeded {
		return nil, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	quoteID := pi.Metadata["quote_id"]
	if quoteID == "" {
		return nil, fmt.Errorf("payment intent %s has no quote_id metadata", pi.ID)
	}

	return &port.PaymentSucceeded{
		EventID:         evt.ID,
		PaymentIntentID: pi.ID,
		QuoteID:         quoteID,
		AmountReceived:  fromMinorUnits(pi.AmountReceived),
		Currency:        string(pi.Currency),
	}, nil
}
