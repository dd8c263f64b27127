package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/domain/event"
	"github.com/garyjia/translation-quotes/internal/domain/hitl"
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
)

// ReviewDecision is a staff action on a review
type ReviewDecision struct {
	ReviewID string
	StaffID  string
	Notes    string
	// RequestPayment approves straight to awaiting_payment
	RequestPayment bool
	// FileIDs limits a better-scan request to these files; empty flags all files
	FileIDs []string
}

// ReviewService handles the staff side of human-in-the-loop review
type ReviewService interface {
	ListOpen(ctx context.Context, limit, offset int) ([]*entity.HITLReview, error)
	GetReview(ctx context.Context, reviewID string) (*entity.HITLReview, error)
	Claim(ctx context.Context, reviewID, staffID string) (*entity.HITLReview, error)
	Approve(ctx context.Context, d ReviewDecision) (*entity.HITLReview, error)
	// Reject closes the review; the quote keeps its status
	Reject(ctx context.Context, d ReviewDecision) (*entity.HITLReview, error)
	RequestBetterScan(ctx context.Context, d ReviewDecision) (*entity.HITLReview, error)
	ListThresholds(ctx context.Context) (map[string]float64, error)
	SetThreshold(ctx context.Context, key string, value float64, active bool) error
}

type reviewServiceImpl struct {
	reviewRepo     port.HITLReviewRepository
	quoteRepo      port.QuoteRepository
	fileRepo       port.QuoteFileRepository
	thresholdRepo  port.ThresholdRepository
	transitions    TransitionService
	txManager      port.TransactionManager
	publisher      EventPublisher
	logger         Logger
	paymentBaseURL string
}

// NewReviewService creates a new ReviewService
func NewReviewService(
	reviewRepo port.HITLReviewRepository,
	quoteRepo port.QuoteRepository,
	fileRepo port.QuoteFileRepository,
	thresholdRepo port.ThresholdRepository,
	transitions TransitionService,
	txManager port.TransactionManager,
	publisher EventPublisher,
	logger Logger,
	paymentBaseURL string,
) ReviewService {
	return &reviewServiceImpl{
		reviewRepo:     reviewRepo,
		quoteRepo:      quoteRepo,
		fileRepo:       fileRepo,
		thresholdRepo:  thresholdRepo,
		transitions:    transitions,
		txManager:      txManager,
		publisher:      orNopPublisher(publisher),
		logger:         orNopLogger(logger),
		paymentBaseURL: paymentBaseURL,
	}
}

// ListOpen returns pending and in-progress reviews, most urgent first
func (s *reviewServiceImpl) ListOpen(ctx context.Context, limit, offset int) ([]*entity.HITLReview, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.reviewRepo.ListOpen(ctx, limit, offset)
}

// GetReview returns a review or ErrReviewNotFound
func (s *reviewServiceImpl) GetReview(ctx context.Context, reviewID string) (*entity.HITLReview, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review == nil {
		return nil, entity.ErrReviewNotFound
	}
	return review, nil
}

// Claim assigns the review to a staff member and moves the quote into review
func (s *reviewServiceImpl) Claim(ctx context.Context, reviewID, staffID string) (*entity.HITLReview, error) {
	if staffID == "" {
		return nil, fmt.Errorf("%w: staff id is required", entity.ErrValidation)
	}
	review, err := s.openReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status == entity.ReviewStatusInProgress {
		return claimResult(review, staffID)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		quote, err := s.loadQuote(txCtx, review.QuoteID)
		if err != nil {
			return err
		}
		review.Status = entity.ReviewStatusInProgress
		review.AssignedTo = staffID
		if err := s.reviewRepo.Update(txCtx, review, entity.ReviewStatusPending); err != nil {
			return err
		}
		if quote.Status == workflow.StateHITLPending {
			return s.transitions.ApplyTransition(txCtx, quote.ID, workflow.StateHITLPending, workflow.StateHITLInReview, TransitionMeta{
				Actor:    staffID,
				Metadata: map[string]interface{}{"review_id": review.ID},
			})
		}
		return nil
	})
	if errors.Is(err, entity.ErrReviewClosed) {
		// lost the race to another claim or a resolution
		return s.claimedElsewhere(ctx, reviewID, staffID)
	}
	if err != nil {
		s.logger.Error("Failed to claim review", "error", err, "review_id", reviewID)
		return nil, err
	}

	s.logger.Info("Review claimed", "review_id", reviewID, "staff_id", staffID)
	return review, nil
}

// Approve closes the review and releases the quote to the customer
func (s *reviewServiceImpl) Approve(ctx context.Context, d ReviewDecision) (*entity.HITLReview, error) {
	target := workflow.StateQuoteReady
	if d.RequestPayment {
		target = workflow.StateAwaitingPayment
	}

	var quote *entity.Quote
	review, err := s.resolve(ctx, d, entity.ReviewStatusApproved, func(txCtx context.Context, q *entity.Quote) error {
		quote = q
		return s.moveQuote(txCtx, q, target, d)
	})
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		event.KeyQuoteNumber: quote.QuoteNumber,
		event.KeyTotal:       quote.Total,
		event.KeyReviewID:    review.ID,
	}
	if d.RequestPayment {
		payload[event.KeyPaymentURL] = paymentURL(s.paymentBaseURL, quote.ID)
		s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypePaymentRequested, quote.ID, payload))
	} else {
		s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeQuoteReady, quote.ID, payload))
	}

	s.logger.Info("Review approved", "review_id", review.ID, "quote_id", quote.ID, "target", target, "staff_id", d.StaffID)
	return review, nil
}

// Reject closes the review without touching the quote status
func (s *reviewServiceImpl) Reject(ctx context.Context, d ReviewDecision) (*entity.HITLReview, error) {
	review, err := s.resolve(ctx, d, entity.ReviewStatusRejected, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Review rejected", "review_id", review.ID, "quote_id", review.QuoteID, "staff_id", d.StaffID)
	return review, nil
}

// RequestBetterScan asks the customer to replace unreadable documents
func (s *reviewServiceImpl) RequestBetterScan(ctx context.Context, d ReviewDecision) (*entity.HITLReview, error) {
	var quote *entity.Quote
	review, err := s.resolve(ctx, d, entity.ReviewStatusAwaitingCustomer, func(txCtx context.Context, q *entity.Quote) error {
		quote = q
		if err := s.fileRepo.MarkNeedsReplacement(txCtx, q.ID, d.FileIDs); err != nil {
			return fmt.Errorf("flag files: %w", err)
		}
		return s.moveQuote(txCtx, q, workflow.StateAwaitingCustomer, d)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeBetterScanRequested, quote.ID, map[string]interface{}{
		event.KeyQuoteNumber: quote.QuoteNumber,
		event.KeyReviewID:    review.ID,
		"message":            d.Notes,
	}))

	s.logger.Info("Better scan requested", "review_id", review.ID, "quote_id", quote.ID, "files", len(d.FileIDs))
	return review, nil
}

// ListThresholds returns the active gate configuration
func (s *reviewServiceImpl) ListThresholds(ctx context.Context) (map[string]float64, error) {
	return s.thresholdRepo.ListActive(ctx)
}

// SetThreshold updates one gate limit
func (s *reviewServiceImpl) SetThreshold(ctx context.Context, key string, value float64, active bool) error {
	known := false
	for _, k := range hitl.KnownKeys {
		if string(k) == key {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: unknown threshold %q", entity.ErrValidation, key)
	}
	if value < 0 {
		return fmt.Errorf("%w: threshold must not be negative", entity.ErrValidation)
	}
	if err := s.thresholdRepo.Upsert(ctx, key, value, active); err != nil {
		return err
	}
	s.logger.Info("Threshold updated", "key", key, "value", value, "active", active)
	return nil
}

// resolve closes an open review with status and runs apply on the quote in the same transaction
func (s *reviewServiceImpl) resolve(ctx context.Context, d ReviewDecision, status string, apply func(context.Context, *entity.Quote) error) (*entity.HITLReview, error) {
	if d.StaffID == "" {
		return nil, fmt.Errorf("%w: staff id is required", entity.ErrValidation)
	}
	review, err := s.openReview(ctx, d.ReviewID)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		quote, err := s.loadQuote(txCtx, review.QuoteID)
		if err != nil {
			return err
		}

		now := time.Now()
		fromStatus := review.Status
		review.Status = status
		review.ResolvedBy = d.StaffID
		review.ResolvedAt = &now
		review.ResolutionNotes = d.Notes
		if review.AssignedTo == "" {
			review.AssignedTo = d.StaffID
		}
		if err := s.reviewRepo.Update(txCtx, review, fromStatus); err != nil {
			return err
		}
		if apply != nil {
			return apply(txCtx, quote)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to resolve review", "error", err, "review_id", d.ReviewID, "status", status)
		return nil, err
	}
	return review, nil
}

// moveQuote walks the quote to target, passing through hitl_in_review when it was never claimed
func (s *reviewServiceImpl) moveQuote(ctx context.Context, quote *entity.Quote, target workflow.State, d ReviewDecision) error {
	from := quote.Status
	if from == target {
		return nil
	}
	meta := TransitionMeta{
		Actor:    d.StaffID,
		Reason:   d.Notes,
		Metadata: map[string]interface{}{"review_id": d.ReviewID},
	}
	if from == workflow.StateHITLPending && !workflow.CanTransition(from, target) {
		if err := s.transitions.ApplyTransition(ctx, quote.ID, from, workflow.StateHITLInReview, meta); err != nil {
			return err
		}
		from = workflow.StateHITLInReview
	}
	if err := s.transitions.ApplyTransition(ctx, quote.ID, from, target, meta); err != nil {
		return err
	}
	quote.Status = target
	return nil
}

// claimedElsewhere re-reads a review whose claim lost a compare-and-set
func (s *reviewServiceImpl) claimedElsewhere(ctx context.Context, reviewID, staffID string) (*entity.HITLReview, error) {
	review, err := s.openReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status != entity.ReviewStatusInProgress {
		return nil, fmt.Errorf("%w: review changed concurrently", entity.ErrReviewClosed)
	}
	return claimResult(review, staffID)
}

func claimResult(review *entity.HITLReview, staffID string) (*entity.HITLReview, error) {
	if review.AssignedTo == staffID {
		return review, nil
	}
	return nil, fmt.Errorf("%w: already claimed by %s", entity.ErrReviewClosed, review.AssignedTo)
}

func (s *reviewServiceImpl) openReview(ctx context.Context, reviewID string) (*entity.HITLReview, error) {
	review, err := s.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if !review.IsOpen() {
		return nil, fmt.Errorf("%w: review is %s", entity.ErrReviewClosed, review.Status)
	}
	return review, nil
}

func (s *reviewServiceImpl) loadQuote(ctx context.Context, quoteID string) (*entity.Quote, error) {
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if quote == nil {
		return nil, entity.ErrQuoteNotFound
	}
	return quote, nil
}
