package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
	"github.com/garyjia/translation-quotes/internal/infrastructure/persistence/sqldb"
)

// StatusHistoryRepository implements port.StatusHistoryRepository
type StatusHistoryRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewStatusHistoryRepository creates a new status history repository
func NewStatusHistoryRepository(db *sqldb.DB, logger *zap.Logger) port.StatusHistoryRepository {
	return &StatusHistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a transition record
func (r *StatusHistoryRepository) Create(ctx context.Context, h *entity.StatusHistory) error {
	query := `
		INSERT INTO quote_status_history (id, quote_id, from_status, to_status, trigger_name, actor, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query),
		h.ID,
		h.QuoteID,
		string(h.FromStatus),
		string(h.ToStatus),
		h.Trigger,
		h.Actor,
		h.Metadata,
		h.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create status history", zap.String("quote_id", h.QuoteID), zap.Error(err))
		return fmt.Errorf("failed to create status history: %w", err)
	}
	return nil
}

// ListByQuoteID returns the transitions of a quote in order
func (r *StatusHistoryRepository) ListByQuoteID(ctx context.Context, quoteID string) ([]*entity.StatusHistory, error) {
	query := `
		SELECT id, quote_id, from_status, to_status, trigger_name, actor, metadata, created_at
		FROM quote_status_history
		WHERE quote_id = ?
		ORDER BY created_at
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, r.db.Rebind(query), quoteID)
	if err != nil {
		r.logger.Error("Failed to list status history", zap.String("quote_id", quoteID), zap.Error(err))
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	var history []*entity.StatusHistory
	for rows.Next() {
		var h entity.StatusHistory
		var from, to string
		if err := rows.Scan(&h.ID, &h.QuoteID, &from, &to, &h.Trigger, &h.Actor, &h.Metadata, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		h.FromStatus = workflow.State(from)
		h.ToStatus = workflow.State(to)
		history = append(history, &h)
	}
	return history, rows.Err()
}

var _ port.StatusHistoryRepository = (*StatusHistoryRepository)(nil)
