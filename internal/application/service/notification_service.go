package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/translation-quotes/internal/application/dispatcher"
	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/domain/event"
)

// NotificationOptions configures links and branding in customer emails
type NotificationOptions struct {
	CompanyName   string
	PortalBaseURL string
	Currency      string
}

// NotificationService turns domain events into customer emails and staff alerts.
// Delivery failures are logged by the dispatcher and never reach the flow that published the event.
type NotificationService interface {
	CancellationNotifier
	Register(d dispatcher.Dispatcher)
	HandleQuoteReady(ctx context.Context, evt *event.Event) error
	HandleReviewRequired(ctx context.Context, evt *event.Event) error
	HandlePaymentRequested(ctx context.Context, evt *event.Event) error
	HandleQuoteConverted(ctx context.Context, evt *event.Event) error
	HandleBetterScanRequested(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	quoteRepo port.QuoteRepository
	email     port.EmailSender
	staff     port.StaffNotifier
	logger    Logger
	opts      NotificationOptions
}

// NewNotificationService creates a new NotificationService. staff may be nil when no chat is configured.
func NewNotificationService(
	quoteRepo port.QuoteRepository,
	email port.EmailSender,
	staff port.StaffNotifier,
	logger Logger,
	opts NotificationOptions,
) NotificationService {
	if opts.CompanyName == "" {
		opts.CompanyName = "Translation Services"
	}
	if opts.Currency == "" {
		opts.Currency = "cad"
	}
	return &notificationServiceImpl{
		quoteRepo: quoteRepo,
		email:     email,
		staff:     staff,
		logger:    orNopLogger(logger),
		opts:      opts,
	}
}

// Register subscribes the notification handlers to the dispatcher
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeQuoteReady, "notify-quote-ready", s.HandleQuoteReady)
	d.SubscribeNamed(event.TypeQuoteReviewRequired, "notify-review-required", s.HandleReviewRequired)
	d.SubscribeNamed(event.TypePaymentRequested, "notify-payment-requested", s.HandlePaymentRequested)
	d.SubscribeNamed(event.TypeQuoteConverted, "notify-quote-converted", s.HandleQuoteConverted)
	d.SubscribeNamed(event.TypeBetterScanRequested, "notify-better-scan", s.HandleBetterScanRequested)
}

// emailData is the template context shared by every customer email
type emailData struct {
	CompanyName  string
	CustomerName string
	QuoteNumber  string
	OrderNumber  string
	Total        string
	Link         string
	Message      string
	RefundAmount float64
	RefundNote   string
}

// HandleQuoteReady emails the customer their finished quote
func (s *notificationServiceImpl) HandleQuoteReady(ctx context.Context, evt *event.Event) error {
	quote, err := s.customerQuote(ctx, evt.QuoteID)
	if err != nil || quote == nil {
		return err
	}
	data := s.baseData(quote)
	data.Total = s.money(evt.GetPayloadFloat(event.KeyTotal), quote.Total)
	return s.send(ctx, quote.CustomerEmail, quote.CustomerName, tplQuoteReady, data)
}

// HandleReviewRequired alerts staff and tells the customer a person is looking at the documents
func (s *notificationServiceImpl) HandleReviewRequired(ctx context.Context, evt *event.Event) error {
	reasons := evt.GetPayloadStrings(event.KeyTriggerReasons)
	quoteNumber := evt.GetPayloadString(event.KeyQuoteNumber)

	var staffErr error
	if s.staff != nil {
		alert := port.ReviewAlert{
			QuoteID:        evt.QuoteID,
			QuoteNumber:    quoteNumber,
			ReviewID:       evt.GetPayloadString(event.KeyReviewID),
			Priority:       int(evt.GetPayloadFloat("priority")),
			TriggerReasons: reasons,
			Reason:         strings.Join(reasons, ", "),
		}
		if staffErr = s.staff.NotifyReview(ctx, alert); staffErr != nil {
			s.logger.Error("Failed to alert staff", "error", staffErr, "quote_id", evt.QuoteID)
		}
	}

	quote, err := s.customerQuote(ctx, evt.QuoteID)
	if err != nil {
		return err
	}
	if quote != nil {
		if err := s.send(ctx, quote.CustomerEmail, quote.CustomerName, tplUnderReview, s.baseData(quote)); err != nil {
			return err
		}
	}
	if staffErr != nil {
		return fmt.Errorf("staff alert: %w", staffErr)
	}
	return nil
}

// HandlePaymentRequested emails the payment link
func (s *notificationServiceImpl) HandlePaymentRequested(ctx context.Context, evt *event.Event) error {
	quote, err := s.customerQuote(ctx, evt.QuoteID)
	if err != nil || quote == nil {
		return err
	}
	data := s.baseData(quote)
	data.Total = s.money(evt.GetPayloadFloat(event.KeyTotal), quote.Total)
	if link := evt.GetPayloadString(event.KeyPaymentURL); link != "" {
		data.Link = link
	}
	return s.send(ctx, quote.CustomerEmail, quote.CustomerName, tplPaymentRequested, data)
}

// HandleQuoteConverted confirms the order to the customer
func (s *notificationServiceImpl) HandleQuoteConverted(ctx context.Context, evt *event.Event) error {
	quote, err := s.customerQuote(ctx, evt.QuoteID)
	if err != nil || quote == nil {
		return err
	}
	data := s.baseData(quote)
	data.OrderNumber = evt.GetPayloadString(event.KeyOrderNumber)
	data.Total = s.money(evt.GetPayloadFloat(event.KeyTotal), quote.Total)
	return s.send(ctx, quote.CustomerEmail, quote.CustomerName, tplOrderConfirmed, data)
}

// HandleBetterScanRequested asks the customer for clearer copies
func (s *notificationServiceImpl) HandleBetterScanRequested(ctx context.Context, evt *event.Event) error {
	quote, err := s.customerQuote(ctx, evt.QuoteID)
	if err != nil || quote == nil {
		return err
	}
	data := s.baseData(quote)
	data.Message = evt.GetPayloadString("message")
	return s.send(ctx, quote.CustomerEmail, quote.CustomerName, tplBetterScan, data)
}

// NotifyOrderCancelled emails the cancellation synchronously so the caller can report delivery
func (s *notificationServiceImpl) NotifyOrderCancelled(ctx context.Context, order *entity.Order, c *entity.OrderCancellation) error {
	if order.CustomerEmail == "" {
		return fmt.Errorf("order %s has no customer email", order.OrderNumber)
	}
	data := emailData{
		CompanyName:  s.opts.CompanyName,
		CustomerName: order.CustomerName,
		OrderNumber:  order.OrderNumber,
		RefundAmount: c.RefundAmount,
		RefundNote:   refundNote(c, formatMoney(c.RefundAmount, order.Currency)),
	}
	return s.send(ctx, order.CustomerEmail, order.CustomerName, tplOrderCancelled, data)
}

// customerQuote loads the quote; it returns (nil, nil) when there is nobody to email
func (s *notificationServiceImpl) customerQuote(ctx context.Context, quoteID string) (*entity.Quote, error) {
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if quote == nil {
		return nil, entity.ErrQuoteNotFound
	}
	if quote.CustomerEmail == "" {
		s.logger.Info("Skipping customer email, no address on quote", "quote_id", quoteID)
		return nil, nil
	}
	return quote, nil
}

func (s *notificationServiceImpl) baseData(quote *entity.Quote) emailData {
	return emailData{
		CompanyName:  s.opts.CompanyName,
		CustomerName: quote.CustomerName,
		QuoteNumber:  quote.QuoteNumber,
		Total:        formatMoney(quote.Total, s.opts.Currency),
		Link:         strings.TrimRight(s.opts.PortalBaseURL, "/") + "/quotes/" + quote.ID,
	}
}

// money prefers the amount carried by the event over the stored total
func (s *notificationServiceImpl) money(fromEvent, fallback float64) string {
	if fromEvent > 0 {
		return formatMoney(fromEvent, s.opts.Currency)
	}
	return formatMoney(fallback, s.opts.Currency)
}

func (s *notificationServiceImpl) send(ctx context.Context, to, name string, tpl emailTemplate, data emailData) error {
	if s.email == nil {
		s.logger.Info("Email sender not configured, dropping message", "tag", tpl.tag, "to", to)
		return nil
	}

	var subject, html, text bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return fmt.Errorf("render %s subject: %w", tpl.tag, err)
	}
	if err := tpl.html.Execute(&html, data); err != nil {
		return fmt.Errorf("render %s html: %w", tpl.tag, err)
	}
	if err := tpl.text.Execute(&text, data); err != nil {
		return fmt.Errorf("render %s text: %w", tpl.tag, err)
	}

	err := s.email.Send(ctx, port.EmailMessage{
		ToEmail:     to,
		ToName:      name,
		Subject:     subject.String(),
		HTMLContent: html.String(),
		TextContent: text.String(),
		Tags:        []string{tpl.tag},
	})
	if err != nil {
		s.logger.Error("Failed to send email", "error", err, "tag", tpl.tag)
		return fmt.Errorf("send %s email: %w", tpl.tag, err)
	}

	s.logger.Info("Email sent", "tag", tpl.tag)
	return nil
}

func refundNote(c *entity.OrderCancellation, amount string) string {
	switch c.RefundStatus {
	case entity.RefundStatusCompleted:
		return "A refund of " + amount + " has been issued to your original payment method."
	case entity.RefundStatusProcessing:
		return "A refund of " + amount + " is on its way to your original payment method."
	default:
		return "A refund of " + amount + " will be processed by our team. We will contact you if we need any details."
	}
}

func formatMoney(amount float64, currency string) string {
	return fmt.Sprintf("$%.2f %s", amount, strings.ToUpper(currency))
}
