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
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
	"github.com/garyjia/translation-quotes/pkg/utils"
)

// QuoteOptions configures quote creation and payment
type QuoteOptions struct {
	ValidityDays   int
	DefaultTaxRate float64
	Currency       string
	PaymentBaseURL string
	MaxFileSize    int64
}

// CreateQuoteRequest starts a new quote
type CreateQuoteRequest struct {
	EntryPoint     string
	CustomerEmail  string
	CustomerName   string
	SourceLanguage string
	TargetLanguage string
}

// QuoteDetails are the customer-supplied fields submitted before processing
type QuoteDetails struct {
	CustomerEmail  string
	CustomerName   string
	SourceLanguage string
	TargetLanguage string
	IsRush         bool
	DeliveryFee    *float64
}

// UploadRequest is one document upload
type UploadRequest struct {
	QuoteID  string
	FileName string
	MimeType string
	Content  []byte
}

// QuoteStatus is the polling view of a quote
type QuoteStatus struct {
	QuoteID          string                    `json:"quoteId"`
	QuoteNumber      string                    `json:"quoteNumber"`
	Status           workflow.State            `json:"status"`
	ProcessingStatus workflow.ProcessingStatus `json:"processingStatus"`
	Total            float64                   `json:"total"`
	UpdatedAt        time.Time                 `json:"updatedAt"`
	TimedOut         bool                      `json:"timedOut,omitempty"`
}

// QuoteService manages the quote lifecycle outside of document analysis
type QuoteService interface {
	CreateQuote(ctx context.Context, req CreateQuoteRequest) (*entity.Quote, error)
	AddFile(ctx context.Context, req UploadRequest) (*entity.QuoteFile, error)
	SubmitDetails(ctx context.Context, quoteID string, details QuoteDetails) (*entity.Quote, error)
	GetQuote(ctx context.Context, quoteID string) (*entity.Quote, error)
	GetStatus(ctx context.Context, quoteID string) (*QuoteStatus, error)
	ListFiles(ctx context.Context, quoteID string) ([]*entity.QuoteFile, error)
	ListAnalyses(ctx context.Context, quoteID string) ([]*entity.AIAnalysisResult, error)
	ListHistory(ctx context.Context, quoteID string) ([]*entity.StatusHistory, error)
	RequestPayment(ctx context.Context, quoteID, actor string) (*entity.Quote, error)
	// ConvertFromPayment creates the order for a paid quote. Repeated calls for the same quote
	// return the existing order with created=false.
	ConvertFromPayment(ctx context.Context, payment port.PaymentSucceeded) (order *entity.Order, created bool, err error)
	// ExpireStale moves non-terminal quotes past their validity window to expired
	ExpireStale(ctx context.Context, now time.Time, limit int) (int, error)
}

type quoteServiceImpl struct {
	quoteRepo    port.QuoteRepository
	fileRepo     port.QuoteFileRepository
	analysisRepo port.AnalysisRepository
	historyRepo  port.StatusHistoryRepository
	orderRepo    port.OrderRepository
	blobStore    port.BlobStore
	transitions  TransitionService
	processing   ProcessingService
	txManager    port.TransactionManager
	publisher    EventPublisher
	logger       Logger
	opts         QuoteOptions
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(
	quoteRepo port.QuoteRepository,
	fileRepo port.QuoteFileRepository,
	analysisRepo port.AnalysisRepository,
	historyRepo port.StatusHistoryRepository,
	orderRepo port.OrderRepository,
	blobStore port.BlobStore,
	transitions TransitionService,
	processing ProcessingService,
	txManager port.TransactionManager,
	publisher EventPublisher,
	logger Logger,
	opts QuoteOptions,
) QuoteService {
	if opts.ValidityDays <= 0 {
		opts.ValidityDays = 30
	}
	if opts.Currency == "" {
		opts.Currency = "cad"
	}
	return &quoteServiceImpl{
		quoteRepo:    quoteRepo,
		fileRepo:     fileRepo,
		analysisRepo: analysisRepo,
		historyRepo:  historyRepo,
		orderRepo:    orderRepo,
		blobStore:    blobStore,
		transitions:  transitions,
		processing:   processing,
		txManager:    txManager,
		publisher:    orNopPublisher(publisher),
		logger:       orNopLogger(logger),
		opts:         opts,
	}
}

var uploadMimeTypes = map[string]bool{
	entity.MimeTypePDF:  true,
	entity.MimeTypeJPEG: true,
	entity.MimeTypePNG:  true,
	entity.MimeTypeWebP: true,
}

// States in which the customer may upload documents
var uploadStates = map[workflow.State]bool{
	workflow.StateDraft:                 true,
	workflow.StateDetailsPending:        true,
	workflow.StateReviewRequired:        true,
	workflow.StateAwaitingCustomer:      true,
	workflow.StateRevisionNeeded:        true,
	workflow.StateCustomerActionAwaited: true,
}

// CreateQuote creates a draft quote
func (s *quoteServiceImpl) CreateQuote(ctx context.Context, req CreateQuoteRequest) (*entity.Quote, error) {
	entryPoint := req.EntryPoint
	switch entryPoint {
	case "":
		entryPoint = entity.EntryPointWebsite
	case entity.EntryPointWebsite, entity.EntryPointAdmin, entity.EntryPointPartner:
	default:
		return nil, fmt.Errorf("%w: unknown entry point %q", entity.ErrValidation, req.EntryPoint)
	}
	if req.CustomerEmail != "" {
		if err := utils.ValidateEmail(req.CustomerEmail); err != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrValidation, err)
		}
	}

	now := time.Now()
	quote := &entity.Quote{
		ID:             uuid.NewString(),
		QuoteNumber:    newReference("Q", now),
		Status:         workflow.StateDraft,
		CustomerEmail:  req.CustomerEmail,
		CustomerName:   utils.SanitizeString(req.CustomerName),
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		TaxRate:        s.opts.DefaultTaxRate,
		Version:        1,
		EntryPoint:     entryPoint,
		ExpiresAt:      now.AddDate(0, 0, s.opts.ValidityDays),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.quoteRepo.Create(ctx, quote); err != nil {
		s.logger.Error("Failed to create quote", "error", err)
		return nil, err
	}

	s.logger.Info("Quote created", "quote_id", quote.ID, "quote_number", quote.QuoteNumber, "entry_point", entryPoint)
	return quote, nil
}

// AddFile stores an upload and registers it as pending analysis
func (s *quoteServiceImpl) AddFile(ctx context.Context, req UploadRequest) (*entity.QuoteFile, error) {
	if !uploadMimeTypes[req.MimeType] {
		return nil, fmt.Errorf("%w: unsupported file type %q", entity.ErrValidation, req.MimeType)
	}
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: file is empty", entity.ErrValidation)
	}
	if s.opts.MaxFileSize > 0 && int64(len(req.Content)) > s.opts.MaxFileSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", entity.ErrValidation, s.opts.MaxFileSize)
	}

	quote, err := s.requireQuote(ctx, req.QuoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", entity.ErrQuoteTerminal, quote.Status)
	}
	if !uploadStates[quote.Status] {
		return nil, fmt.Errorf("%w: cannot add files while quote is %s", workflow.ErrInvalidState, quote.Status)
	}

	now := time.Now()
	fileID := uuid.NewString()
	file := &entity.QuoteFile{
		ID:                 fileID,
		QuoteID:            quote.ID,
		OriginalFilename:   req.FileName,
		StoragePath:        fmt.Sprintf("quotes/%s/%s-%s", quote.ID, fileID, utils.SanitizeFilename(req.FileName)),
		MimeType:           req.MimeType,
		FileSize:           int64(len(req.Content)),
		AIProcessingStatus: entity.FileStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.blobStore.Put(ctx, file.StoragePath, req.Content, req.MimeType); err != nil {
		s.logger.Error("Failed to store upload", "error", err, "quote_id", quote.ID)
		return nil, fmt.Errorf("store file: %w", err)
	}
	if err := s.fileRepo.Create(ctx, file); err != nil {
		if delErr := s.blobStore.Delete(ctx, file.StoragePath); delErr != nil {
			s.logger.Error("Failed to remove orphaned upload", "error", delErr, "path", file.StoragePath)
		}
		return nil, err
	}

	s.logger.Info("File uploaded", "quote_id", quote.ID, "file_id", file.ID, "size", file.FileSize)
	return file, nil
}

// SubmitDetails stores contact and language details and moves a draft to details_pending
func (s *quoteServiceImpl) SubmitDetails(ctx context.Context, quoteID string, details QuoteDetails) (*entity.Quote, error) {
	if err := validateDetails(details); err != nil {
		return nil, err
	}

	quote, err := s.requireQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", entity.ErrQuoteTerminal, quote.Status)
	}
	if quote.Status == workflow.StateAwaitingPayment {
		return nil, fmt.Errorf("%w: details are locked once payment is requested", workflow.ErrInvalidState)
	}

	repriced := quote.IsRush != details.IsRush
	quote.CustomerEmail = details.CustomerEmail
	quote.CustomerName = utils.SanitizeString(details.CustomerName)
	quote.SourceLanguage = details.SourceLanguage
	quote.TargetLanguage = details.TargetLanguage
	quote.IsRush = details.IsRush
	if details.DeliveryFee != nil {
		repriced = repriced || quote.DeliveryFee != *details.DeliveryFee
		quote.DeliveryFee = *details.DeliveryFee
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.quoteRepo.UpdateDetails(txCtx, quote); err != nil {
			return err
		}
		if repriced {
			if _, err := s.processing.RecalculateTotals(txCtx, quoteID); err != nil {
				return err
			}
		}
		if quote.Status == workflow.StateDraft {
			return s.transitions.ApplyTransition(txCtx, quoteID, workflow.StateDraft, workflow.StateDetailsPending, TransitionMeta{Actor: "customer"})
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to submit details", "error", err, "quote_id", quoteID)
		return nil, err
	}

	return s.quoteRepo.GetByID(ctx, quoteID)
}

// GetQuote returns a quote or ErrQuoteNotFound
func (s *quoteServiceImpl) GetQuote(ctx context.Context, quoteID string) (*entity.Quote, error) {
	return s.requireQuote(ctx, quoteID)
}

// GetStatus is a single read of the quote's processing state
func (s *quoteServiceImpl) GetStatus(ctx context.Context, quoteID string) (*QuoteStatus, error) {
	quote, err := s.requireQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	processing := quote.ProcessingStatus
	if ps, ok := workflow.ProcessingStatusFor(quote.Status); ok {
		processing = ps
	}
	return &QuoteStatus{
		QuoteID:          quote.ID,
		QuoteNumber:      quote.QuoteNumber,
		Status:           quote.Status,
		ProcessingStatus: processing,
		Total:            quote.Total,
		UpdatedAt:        quote.UpdatedAt,
	}, nil
}

// ListFiles returns the quote's uploads
func (s *quoteServiceImpl) ListFiles(ctx context.Context, quoteID string) ([]*entity.QuoteFile, error) {
	if _, err := s.requireQuote(ctx, quoteID); err != nil {
		return nil, err
	}
	return s.fileRepo.ListByQuoteID(ctx, quoteID)
}

// ListAnalyses returns the quote's analysis rows
func (s *quoteServiceImpl) ListAnalyses(ctx context.Context, quoteID string) ([]*entity.AIAnalysisResult, error) {
	if _, err := s.requireQuote(ctx, quoteID); err != nil {
		return nil, err
	}
	return s.analysisRepo.ListByQuoteID(ctx, quoteID)
}

// ListHistory returns the quote's transition log
func (s *quoteServiceImpl) ListHistory(ctx context.Context, quoteID string) ([]*entity.StatusHistory, error) {
	if _, err := s.requireQuote(ctx, quoteID); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByQuoteID(ctx, quoteID)
}

// RequestPayment moves a ready quote to awaiting_payment and tells the customer how to pay
func (s *quoteServiceImpl) RequestPayment(ctx context.Context, quoteID, actor string) (*entity.Quote, error) {
	quote, err := s.requireQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status == workflow.StateAwaitingPayment {
		return quote, nil
	}

	if err := s.transitions.ApplyTransition(ctx, quoteID, quote.Status, workflow.StateAwaitingPayment, TransitionMeta{Actor: actor}); err != nil {
		return nil, err
	}
	s.publishPaymentRequested(ctx, quote)

	return s.quoteRepo.GetByID(ctx, quoteID)
}

func (s *quoteServiceImpl) publishPaymentRequested(ctx context.Context, quote *entity.Quote) {
	s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypePaymentRequested, quote.ID, map[string]interface{}{
		event.KeyQuoteNumber: quote.QuoteNumber,
		event.KeyTotal:       quote.Total,
		event.KeyPaymentURL:  paymentURL(s.opts.PaymentBaseURL, quote.ID),
	}))
}

// ConvertFromPayment turns a paid quote into an order in one transaction
func (s *quoteServiceImpl) ConvertFromPayment(ctx context.Context, payment port.PaymentSucceeded) (*entity.Order, bool, error) {
	if payment.QuoteID == "" {
		return nil, false, fmt.Errorf("%w: payment has no quote reference", entity.ErrValidation)
	}

	existing, err := s.orderRepo.GetByQuoteID(ctx, payment.QuoteID)
	if err != nil {
		return nil, false, fmt.Errorf("get order: %w", err)
	}
	if existing != nil {
		s.logger.Info("Payment already converted", "quote_id", payment.QuoteID, "order_id", existing.ID)
		return existing, false, nil
	}

	quote, err := s.requireQuote(ctx, payment.QuoteID)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	currency := payment.Currency
	if currency == "" {
		currency = s.opts.Currency
	}
	order := &entity.Order{
		ID:                    uuid.NewString(),
		OrderNumber:           newReference("ORD", now),
		QuoteID:               quote.ID,
		CustomerEmail:         quote.CustomerEmail,
		CustomerName:          quote.CustomerName,
		TotalAmount:           quote.Total,
		AmountPaid:            payment.AmountReceived,
		Currency:              currency,
		Status:                entity.OrderStatusActive,
		WorkStatus:            entity.WorkStatusQueued,
		StripePaymentIntentID: payment.PaymentIntentID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return err
		}
		return s.transitions.ApplyTransition(txCtx, quote.ID, quote.Status, workflow.StateConverted, TransitionMeta{
			Actor:    "payment_webhook",
			Metadata: map[string]interface{}{"payment_intent_id": payment.PaymentIntentID, "order_id": order.ID},
		})
	})
	if err != nil {
		// A concurrent delivery of the same webhook may have won the unique quote_id constraint.
		if winner, getErr := s.orderRepo.GetByQuoteID(ctx, payment.QuoteID); getErr == nil && winner != nil {
			return winner, false, nil
		}
		s.logger.Error("Failed to convert quote", "error", err, "quote_id", quote.ID)
		return nil, false, err
	}

	s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeQuoteConverted, quote.ID, map[string]interface{}{
		event.KeyQuoteNumber: quote.QuoteNumber,
		event.KeyOrderID:     order.ID,
		event.KeyOrderNumber: order.OrderNumber,
		event.KeyTotal:       order.AmountPaid,
	}))

	s.logger.Info("Quote converted to order", "quote_id", quote.ID, "order_id", order.ID, "amount_paid", order.AmountPaid)
	return order, true, nil
}

// ExpireStale expires quotes in batches of limit; per-quote failures are logged and skipped
func (s *quoteServiceImpl) ExpireStale(ctx context.Context, now time.Time, limit int) (int, error) {
	quotes, err := s.quoteRepo.ListExpired(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("list expired quotes: %w", err)
	}

	expired := 0
	for _, q := range quotes {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		applied, err := s.transitions.TryTransition(ctx, q.ID, q.Status, workflow.StateExpired, TransitionMeta{
			Actor:    "expiry_worker",
			Metadata: map[string]interface{}{"expires_at": q.ExpiresAt},
		})
		if err != nil {
			s.logger.Error("Failed to expire quote", "error", err, "quote_id", q.ID)
			continue
		}
		if applied {
			expired++
		}
	}
	return expired, nil
}

func (s *quoteServiceImpl) requireQuote(ctx context.Context, quoteID string) (*entity.Quote, error) {
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if quote == nil {
		return nil, entity.ErrQuoteNotFound
	}
	return quote, nil
}

func validateDetails(d QuoteDetails) error {
	var problems []string
	if err := utils.ValidateEmail(d.CustomerEmail); err != nil {
		problems = append(problems, err.Error())
	}
	if strings.TrimSpace(d.CustomerName) == "" {
		problems = append(problems, "customer name is required")
	}
	if err := utils.ValidateLanguageCode(d.SourceLanguage); err != nil {
		problems = append(problems, "source "+err.Error())
	}
	if err := utils.ValidateLanguageCode(d.TargetLanguage); err != nil {
		problems = append(problems, "target "+err.Error())
	}
	if d.DeliveryFee != nil {
		if err := utils.ValidateAmount(*d.DeliveryFee); err != nil {
			problems = append(problems, "delivery fee "+err.Error())
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", entity.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// newReference builds human-readable numbers like Q-20261015-4F9A2C
func newReference(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), suffix)
}

func paymentURL(base, quoteID string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + quoteID
}
