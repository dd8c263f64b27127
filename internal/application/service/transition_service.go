package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
)

// TransitionMeta describes who moved a quote and why
type TransitionMeta struct {
	Actor    string
	Reason   string
	Metadata map[string]interface{}
}

// TransitionService applies quote status changes
type TransitionService interface {
	// ApplyTransition moves the quote from one status to another together with its history row.
	// It returns workflow.ErrStaleState if the quote is no longer in from.
	ApplyTransition(ctx context.Context, quoteID string, from, to workflow.State, meta TransitionMeta) error

	// TryTransition is ApplyTransition that reports a stale status as applied=false instead of an error
	TryTransition(ctx context.Context, quoteID string, from, to workflow.State, meta TransitionMeta) (bool, error)
}

type transitionServiceImpl struct {
	quoteRepo   port.QuoteRepository
	historyRepo port.StatusHistoryRepository
	txManager   port.TransactionManager
	metrics     Metrics
	logger      Logger
}

// NewTransitionService creates a new TransitionService
func NewTransitionService(
	quoteRepo port.QuoteRepository,
	historyRepo port.StatusHistoryRepository,
	txManager port.TransactionManager,
	metrics Metrics,
	logger Logger,
) TransitionService {
	return &transitionServiceImpl{
		quoteRepo:   quoteRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		metrics:     orNopMetrics(metrics),
		logger:      orNopLogger(logger),
	}
}

// ApplyTransition validates the move against the lifecycle, then runs the compare-and-set
// and the history insert in one transaction
func (s *transitionServiceImpl) ApplyTransition(ctx context.Context, quoteID string, from, to workflow.State, meta TransitionMeta) error {
	trigger, err := workflow.ValidateTransition(ctx, from, to)
	if err != nil {
		return err
	}

	metadata, err := encodeMetadata(meta)
	if err != nil {
		return err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := s.quoteRepo.CompareAndSetStatus(txCtx, quoteID, from, to)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: quote %s is no longer %s", workflow.ErrStaleState, quoteID, from)
		}

		history := &entity.StatusHistory{
			ID:         uuid.NewString(),
			QuoteID:    quoteID,
			FromStatus: from,
			ToStatus:   to,
			Trigger:    trigger.String(),
			Actor:      meta.Actor,
			Metadata:   metadata,
			CreatedAt:  time.Now(),
		}
		if err := s.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, workflow.ErrStaleState) {
			s.logger.Error("Failed to apply transition", "error", err, "quote_id", quoteID, "from", from, "to", to)
		}
		return err
	}

	s.metrics.ObserveTransition(from, to)
	s.logger.Info("Quote status changed", "quote_id", quoteID, "from", from, "to", to, "trigger", trigger, "actor", meta.Actor)
	return nil
}

// TryTransition applies the transition and swallows a lost race
func (s *transitionServiceImpl) TryTransition(ctx context.Context, quoteID string, from, to workflow.State, meta TransitionMeta) (bool, error) {
	err := s.ApplyTransition(ctx, quoteID, from, to, meta)
	if errors.Is(err, workflow.ErrStaleState) {
		s.logger.Info("Transition skipped, quote already moved", "quote_id", quoteID, "from", from, "to", to)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func encodeMetadata(meta TransitionMeta) (string, error) {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return "", nil
	}
	m := make(map[string]interface{}, len(meta.Metadata)+1)
	for k, v := range meta.Metadata {
		m[k] = v
	}
	if meta.Reason != "" {
		m["reason"] = meta.Reason
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode transition metadata: %w", err)
	}
	return string(b), nil
}
