package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/infrastructure/persistence/sqldb"
)

// OrderRepository implements port.OrderRepository
type OrderRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sqldb.DB, logger *zap.Logger) port.OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

const orderColumns = `id, order_number, quote_id, customer_email, customer_name, total_amount,
	amount_paid, currency, status, work_status, stripe_payment_intent_id, created_at, updated_at`

// Create inserts a new order
func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query),
		order.ID,
		order.OrderNumber,
		order.QuoteID,
		order.CustomerEmail,
		order.CustomerName,
		order.TotalAmount,
		order.AmountPaid,
		order.Currency,
		order.Status,
		order.WorkStatus,
		order.StripePaymentIntentID,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order", zap.String("quote_id", order.QuoteID), zap.Error(err))
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by ID
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	order, err := scanOrder(r.db.Executor(ctx).QueryRowContext(ctx, r.db.Rebind(query), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get order", zap.String("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// GetByQuoteID retrieves the order a quote converted into
func (r *OrderRepository) GetByQuoteID(ctx context.Context, quoteID string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE quote_id = ?`

	order, err := scanOrder(r.db.Executor(ctx).QueryRowContext(ctx, r.db.Rebind(query), quoteID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get order by quote", zap.String("quote_id", quoteID), zap.Error(err))
		return nil, fmt.Errorf("failed to get order by quote: %w", err)
	}
	return order, nil
}

// CancelIfActive flips an active order to cancelled
func (r *OrderRepository) CancelIfActive(ctx context.Context, id string) (bool, error) {
	query := `UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query),
		entity.OrderStatusCancelled, time.Now(), id, entity.OrderStatusActive)
	if err != nil {
		r.logger.Error("Failed to cancel order", zap.String("order_id", id), zap.Error(err))
		return false, fmt.Errorf("failed to cancel order: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

func scanOrder(s rowScanner) (*entity.Order, error) {
	var o entity.Order
	err := s.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.QuoteID,
		&o.CustomerEmail,
		&o.CustomerName,
		&o.TotalAmount,
		&o.AmountPaid,
		&o.Currency,
		&o.Status,
		&o.WorkStatus,
		&o.StripePaymentIntentID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

var _ port.OrderRepository = (*OrderRepository)(nil)
