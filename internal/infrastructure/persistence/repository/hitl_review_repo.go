package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/infrastructure/persistence/sqldb"
)

// HITLReviewRepository implements port.HITLReviewRepository
type HITLReviewRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewHITLReviewRepository creates a new review repository
func NewHITLReviewRepository(db *sqldb.DB, logger *zap.Logger) port.HITLReviewRepository {
	return &HITLReviewRepository{
		db:     db,
		logger: logger,
	}
}

const reviewColumns = `id, quote_id, status, priority, trigger_reasons, sla_deadline, assigned_to,
	resolution_notes, resolved_by, resolved_at, created_at, updated_at`

// CreateOpen inserts a pending review. The partial unique index on open reviews turns a
// concurrent second insert into a no-op, after which the existing open review is returned.
func (r *HITLReviewRepository) CreateOpen(ctx context.Context, review *entity.HITLReview) (*entity.HITLReview, bool, error) {
	query := `
		INSERT INTO hitl_reviews (` + reviewColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`

	reasons, err := marshalJSON(review.TriggerReasons)
	if err != nil {
		return nil, false, err
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query),
		review.ID,
		review.QuoteID,
		review.Status,
		review.Priority,
		reasons,
		review.SLADeadline,
		review.AssignedTo,
		review.ResolutionNotes,
		review.ResolvedBy,
		review.ResolvedAt,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create hitl review", zap.String("quote_id", review.QuoteID), zap.Error(err))
		return nil, false, fmt.Errorf("failed to create hitl review: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 1 {
		return review, true, nil
	}

	existing, err := r.GetOpenByQuoteID(ctx, review.QuoteID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("hitl review insert for quote %s conflicted but no open review exists", review.QuoteID)
	}
	return existing, false, nil
}

// GetByID retrieves a review by ID
func (r *HITLReviewRepository) GetByID(ctx context.Context, id string) (*entity.HITLReview, error) {
	query := `SELECT ` + reviewColumns + ` FROM hitl_reviews WHERE id = ?`

	review, err := scanReview(r.db.Executor(ctx).QueryRowContext(ctx, r.db.Rebind(query), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get hitl review", zap.String("review_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get hitl review: %w", err)
	}
	return review, nil
}

// GetOpenByQuoteID returns the pending or in-progress review of a quote
func (r *HITLReviewRepository) GetOpenByQuoteID(ctx context.Context, quoteID string) (*entity.HITLReview, error) {
	query := `SELECT ` + reviewColumns + `
		FROM hitl_reviews
		WHERE quote_id = ? AND status IN ('pending', 'in_progress')`

	review, err := scanReview(r.db.Executor(ctx).QueryRowContext(ctx, r.db.Rebind(query), quoteID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get open hitl review", zap.String("quote_id", quoteID), zap.Error(err))
		return nil, fmt.Errorf("failed to get open hitl review: %w", err)
	}
	return review, nil
}

// ListOpen returns open reviews, most urgent first
func (r *HITLReviewRepository) ListOpen(ctx context.Context, limit, offset int) ([]*entity.HITLReview, error) {
	query := `SELECT ` + reviewColumns + `
		FROM hitl_reviews
		WHERE status IN ('pending', 'in_progress')
		ORDER BY priority, sla_deadline
		LIMIT ? OFFSET ?`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, r.db.Rebind(query), limit, offset)
	if err != nil {
		r.logger.Error("Failed to list open hitl reviews", zap.Error(err))
		return nil, fmt.Errorf("failed to list open hitl reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*entity.HITLReview
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hitl review: %w", err)
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

// Update persists status, assignment and resolution fields when the stored status still
// equals fromStatus. A review that moved on in the meantime yields entity.ErrReviewClosed.
func (r *HITLReviewRepository) Update(ctx context.Context, review *entity.HITLReview, fromStatus string) error {
	query := `
		UPDATE hitl_reviews
		SET status = ?, assigned_to = ?, resolution_notes = ?, resolved_by = ?, resolved_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	review.UpdatedAt = time.Now()
	result, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query),
		review.Status,
		review.AssignedTo,
		review.ResolutionNotes,
		review.ResolvedBy,
		review.ResolvedAt,
		review.UpdatedAt,
		review.ID,
		fromStatus,
	)
	if err != nil {
		r.logger.Error("Failed to update hitl review", zap.String("review_id", review.ID), zap.Error(err))
		return fmt.Errorf("failed to update hitl review: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		r.logger.Warn("Hitl review changed before update",
			zap.String("review_id", review.ID),
			zap.String("from", fromStatus),
			zap.String("to", review.Status))
		return fmt.Errorf("%w: review %s is no longer %s", entity.ErrReviewClosed, review.ID, fromStatus)
	}
	return nil
}

func scanReview(s rowScanner) (*entity.HITLReview, error) {
	var review entity.HITLReview
	var reasons string
	var resolvedAt sql.NullTime

	err := s.Scan(
		&review.ID,
		&review.QuoteID,
		&review.Status,
		&review.Priority,
		&reasons,
		&review.SLADeadline,
		&review.AssignedTo,
		&review.ResolutionNotes,
		&review.ResolvedBy,
		&resolvedAt,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if reasons != "" {
		if err := json.Unmarshal([]byte(reasons), &review.TriggerReasons); err != nil {
			return nil, fmt.Errorf("failed to decode trigger reasons: %w", err)
		}
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		review.ResolvedAt = &t
	}
	return &review, nil
}

var _ port.HITLReviewRepository = (*HITLReviewRepository)(nil)
