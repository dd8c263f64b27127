package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/domain/event"
	"github.com/garyjia/translation-quotes/internal/domain/hitl"
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
)

// ThresholdResult is the outcome of a gate check
type ThresholdResult struct {
	Passed         bool     `json:"passed"`
	TriggerReasons []string `json:"triggerReasons"`
	ReviewID       string   `json:"reviewId,omitempty"`
	AlreadyInHITL  bool     `json:"alreadyInHitl,omitempty"`
	Priority       int      `json:"priority,omitempty"`
}

// ThresholdService routes analysed quotes to staff review when confidence or value limits are crossed
type ThresholdService interface {
	CheckThresholds(ctx context.Context, quoteID string) (*ThresholdResult, error)
}

type thresholdServiceImpl struct {
	quoteRepo     port.QuoteRepository
	analysisRepo  port.AnalysisRepository
	thresholdRepo port.ThresholdRepository
	reviewRepo    port.HITLReviewRepository
	transitions   TransitionService
	txManager     port.TransactionManager
	publisher     EventPublisher
	metrics       Metrics
	logger        Logger
	sla           time.Duration
}

// NewThresholdService creates a new ThresholdService. A zero sla uses hitl.DefaultSLA.
func NewThresholdService(
	quoteRepo port.QuoteRepository,
	analysisRepo port.AnalysisRepository,
	thresholdRepo port.ThresholdRepository,
	reviewRepo port.HITLReviewRepository,
	transitions TransitionService,
	txManager port.TransactionManager,
	publisher EventPublisher,
	metrics Metrics,
	logger Logger,
	sla time.Duration,
) ThresholdService {
	if sla <= 0 {
		sla = hitl.DefaultSLA
	}
	return &thresholdServiceImpl{
		quoteRepo:     quoteRepo,
		analysisRepo:  analysisRepo,
		thresholdRepo: thresholdRepo,
		reviewRepo:    reviewRepo,
		transitions:   transitions,
		txManager:     txManager,
		publisher:     orNopPublisher(publisher),
		metrics:       orNopMetrics(metrics),
		logger:        orNopLogger(logger),
		sla:           sla,
	}
}

// CheckThresholds evaluates the quote's analyses against the active thresholds.
// Read failures on analyses or thresholds pass the quote so customers are never blocked.
func (s *thresholdServiceImpl) CheckThresholds(ctx context.Context, quoteID string) (*ThresholdResult, error) {
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if quote == nil {
		return nil, entity.ErrQuoteNotFound
	}
	if isInHITL(quote.Status) {
		return s.alreadyInHITL(ctx, quoteID)
	}

	analyses, err := s.analysisRepo.ListByQuoteID(ctx, quoteID)
	if err != nil {
		s.logger.Error("Failed to load analyses, passing quote", "error", err, "quote_id", quoteID)
		return passed(), nil
	}
	if len(analyses) == 0 {
		return passed(), nil
	}

	rows, err := s.thresholdRepo.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to load thresholds, passing quote", "error", err, "quote_id", quoteID)
		return passed(), nil
	}

	signals := make([]hitl.Signal, 0, len(analyses))
	for _, a := range analyses {
		signals = append(signals, a.Signal())
	}
	eval := hitl.Evaluate(signals, hitl.ParseThresholds(rows))
	reasons := hitl.ReasonStrings(eval.Reasons)
	s.metrics.ObserveGate(eval.Passed, reasons)

	if eval.Passed {
		s.logger.Info("Quote passed thresholds", "quote_id", quoteID)
		return passed(), nil
	}
	if quote.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", entity.ErrQuoteTerminal, quote.Status)
	}

	now := time.Now()
	candidate := &entity.HITLReview{
		ID:             uuid.NewString(),
		QuoteID:        quoteID,
		Status:         entity.ReviewStatusPending,
		Priority:       eval.Priority,
		TriggerReasons: reasons,
		SLADeadline:    hitl.SLADeadline(now, s.sla),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var review *entity.HITLReview
	var created bool
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		review, created, err = s.reviewRepo.CreateOpen(txCtx, candidate)
		if err != nil {
			return fmt.Errorf("create review: %w", err)
		}
		return s.transitions.ApplyTransition(txCtx, quoteID, quote.Status, workflow.StateHITLPending, TransitionMeta{
			Actor:    "system",
			Reason:   "hitl thresholds failed",
			Metadata: map[string]interface{}{"trigger_reasons": reasons, "review_id": review.ID},
		})
	})
	if errors.Is(err, workflow.ErrStaleState) {
		// A concurrent check flipped the quote first.
		current, getErr := s.quoteRepo.GetByID(ctx, quoteID)
		if getErr == nil && current != nil && isInHITL(current.Status) {
			return s.alreadyInHITL(ctx, quoteID)
		}
		return nil, err
	}
	if err != nil {
		s.logger.Error("Failed to open hitl review", "error", err, "quote_id", quoteID)
		return nil, err
	}

	if created {
		s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeQuoteReviewRequired, quoteID, map[string]interface{}{
			event.KeyQuoteNumber:    quote.QuoteNumber,
			event.KeyReviewID:       review.ID,
			event.KeyTriggerReasons: review.TriggerReasons,
			"priority":              review.Priority,
		}))
	}

	s.logger.Info("Quote routed to staff review",
		"quote_id", quoteID,
		"review_id", review.ID,
		"priority", review.Priority,
		"reasons", reasons,
		"created", created,
	)

	return &ThresholdResult{
		Passed:         false,
		TriggerReasons: review.TriggerReasons,
		ReviewID:       review.ID,
		AlreadyInHITL:  !created,
		Priority:       review.Priority,
	}, nil
}

func (s *thresholdServiceImpl) alreadyInHITL(ctx context.Context, quoteID string) (*ThresholdResult, error) {
	result := &ThresholdResult{Passed: false, TriggerReasons: []string{}, AlreadyInHITL: true}
	review, err := s.reviewRepo.GetOpenByQuoteID(ctx, quoteID)
	if err != nil {
		s.logger.Error("Failed to load open review", "error", err, "quote_id", quoteID)
		return result, nil
	}
	if review != nil {
		result.ReviewID = review.ID
		result.TriggerReasons = review.TriggerReasons
		result.Priority = review.Priority
	}
	return result, nil
}

func passed() *ThresholdResult {
	return &ThresholdResult{Passed: true, TriggerReasons: []string{}}
}

func isInHITL(s workflow.State) bool {
	return s == workflow.StateHITLPending || s == workflow.StateHITLInReview
}
