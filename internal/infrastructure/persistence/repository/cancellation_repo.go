package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/infrastructure/persistence/sqldb"
)

// CancellationRepository implements port.CancellationRepository
type CancellationRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewCancellationRepository creates a new cancellation repository
func NewCancellationRepository(db *sqldb.DB, logger *zap.Logger) port.CancellationRepository {
	return &CancellationRepository{
		db:     db,
		logger: logger,
	}
}

const cancellationColumns = `id, order_id, staff_id, reason_code, reason_notes, refund_type,
	refund_amount, refund_method, refund_status, stripe_refund_id, stripe_error, created_at`

// Create inserts a cancellation record
func (r *CancellationRepository) Create(ctx context.Context, c *entity.OrderCancellation) error {
	query := `INSERT INTO order_cancellations (` + cancellationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query),
		c.ID,
		c.OrderID,
		c.StaffID,
		c.ReasonCode,
		c.ReasonNotes,
		c.RefundType,
		c.RefundAmount,
		c.RefundMethod,
		c.RefundStatus,
		c.StripeRefundID,
		c.StripeError,
		c.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order cancellation", zap.String("order_id", c.OrderID), zap.Error(err))
		return fmt.Errorf("failed to create order cancellation: %w", err)
	}
	return nil
}

// ListByOrderID returns the cancellation records of an order
func (r *CancellationRepository) ListByOrderID(ctx context.Context, orderID string) ([]*entity.OrderCancellation, error) {
	query := `SELECT ` + cancellationColumns + ` FROM order_cancellations WHERE order_id = ? ORDER BY created_at`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, r.db.Rebind(query), orderID)
	if err != nil {
		r.logger.Error("Failed to list order cancellations", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("failed to list order cancellations: %w", err)
	}
	defer rows.Close()

	var out []*entity.OrderCancellation
	for rows.Next() {
		var c entity.OrderCancellation
		if err := rows.Scan(
			&c.ID,
			&c.OrderID,
			&c.StaffID,
			&c.ReasonCode,
			&c.ReasonNotes,
			&c.RefundType,
			&c.RefundAmount,
			&c.RefundMethod,
			&c.RefundStatus,
			&c.StripeRefundID,
			&c.StripeError,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order cancellation: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

var _ port.CancellationRepository = (*CancellationRepository)(nil)
