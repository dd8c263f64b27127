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
	"github.com/garyjia/translation-quotes/internal/domain/pricing"
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
	"github.com/garyjia/translation-quotes/internal/infrastructure/persistence/sqldb"
)

// QuoteRepository implements port.QuoteRepository
type QuoteRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewQuoteRepository creates a new quote repository
func NewQuoteRepository(db *sqldb.DB, logger *zap.Logger) port.QuoteRepository {
	return &QuoteRepository{
		db:     db,
		logger: logger,
	}
}

const quoteColumns = `id, quote_number, status, processing_status, customer_email, customer_name,
	source_language, target_language, is_rush, delivery_fee, subtotal, certification_total,
	tax_rate, tax_amount, total, calculated_totals, version, entry_point, expires_at,
	created_at, updated_at`

// Create inserts a new quote
func (r *QuoteRepository) Create(ctx context.Context, quote *entity.Quote) error {
	query := `
		INSERT INTO quotes (
			id, quote_number, status, processing_status, customer_email, customer_name,
			source_language, target_language, is_rush, delivery_fee, subtotal, certification_total,
			tax_rate, tax_amount, total, calculated_totals, version, entry_point, expires_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	totals, err := encodeTotals(quote.CalculatedTotals)
	if err != nil {
		return err
	}

	_, err = r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query),
		quote.ID,
		quote.QuoteNumber,
		string(quote.Status),
		nullString(string(quote.ProcessingStatus)),
		quote.CustomerEmail,
		quote.CustomerName,
		quote.SourceLanguage,
		quote.TargetLanguage,
		quote.IsRush,
		quote.DeliveryFee,
		quote.Subtotal,
		quote.CertificationTotal,
		quote.TaxRate,
		quote.TaxAmount,
		quote.Total,
		totals,
		quote.Version,
		quote.EntryPoint,
		quote.ExpiresAt,
		quote.CreatedAt,
		quote.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create quote", zap.String("quote_id", quote.ID), zap.Error(err))
		return fmt.Errorf("failed to create quote: %w", err)
	}
	return nil
}

// GetByID retrieves a quote by ID
func (r *QuoteRepository) GetByID(ctx context.Context, id string) (*entity.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE id = ?`

	quote, err := scanQuote(r.db.Executor(ctx).QueryRowContext(ctx, r.db.Rebind(query), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get quote", zap.String("quote_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return quote, nil
}

// UpdateDetails updates the customer-supplied fields
func (r *QuoteRepository) UpdateDetails(ctx context.Context, quote *entity.Quote) error {
	query := `
		UPDATE quotes
		SET customer_email = ?, customer_name = ?, source_language = ?, target_language = ?,
			is_rush = ?, delivery_fee = ?, tax_rate = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query),
		quote.CustomerEmail,
		quote.CustomerName,
		quote.SourceLanguage,
		quote.TargetLanguage,
		quote.IsRush,
		quote.DeliveryFee,
		quote.TaxRate,
		time.Now(),
		quote.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update quote details", zap.String("quote_id", quote.ID), zap.Error(err))
		return fmt.Errorf("failed to update quote details: %w", err)
	}
	return nil
}

// UpdateTotals persists the computed price fields
func (r *QuoteRepository) UpdateTotals(ctx context.Context, quote *entity.Quote) error {
	query := `
		UPDATE quotes
		SET subtotal = ?, certification_total = ?, tax_amount = ?, total = ?,
			calculated_totals = ?, updated_at = ?
		WHERE id = ?
	`

	totals, err := encodeTotals(quote.CalculatedTotals)
	if err != nil {
		return err
	}

	_, err = r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query),
		quote.Subtotal,
		quote.CertificationTotal,
		quote.TaxAmount,
		quote.Total,
		totals,
		time.Now(),
		quote.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update quote totals", zap.String("quote_id", quote.ID), zap.Error(err))
		return fmt.Errorf("failed to update quote totals: %w", err)
	}
	return nil
}

// CompareAndSetStatus moves the quote from one status to another only if it is still in from.
// processing_status follows the new status when the new status carries one.
func (r *QuoteRepository) CompareAndSetStatus(ctx context.Context, id string, from, to workflow.State) (bool, error) {
	query := `
		UPDATE quotes
		SET status = ?, processing_status = COALESCE(?, processing_status), updated_at = ?
		WHERE id = ? AND status = ?
	`

	var processing sql.NullString
	if ps, ok := workflow.ProcessingStatusFor(to); ok {
		processing = sql.NullString{String: string(ps), Valid: true}
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query),
		string(to), processing, time.Now(), id, string(from))
	if err != nil {
		r.logger.Error("Failed to update quote status",
			zap.String("quote_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
		return false, fmt.Errorf("failed to update quote status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

// IncrementVersion bumps the version and returns the new value
func (r *QuoteRepository) IncrementVersion(ctx context.Context, id string) (int, error) {
	query := `UPDATE quotes SET version = version + 1, updated_at = ? WHERE id = ? RETURNING version`

	var version int
	err := r.db.Executor(ctx).QueryRowContext(ctx, r.db.Rebind(query), time.Now(), id).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, entity.ErrQuoteNotFound
	}
	if err != nil {
		r.logger.Error("Failed to increment quote version", zap.String("quote_id", id), zap.Error(err))
		return 0, fmt.Errorf("failed to increment quote version: %w", err)
	}
	return version, nil
}

// ListExpired returns non-terminal quotes whose validity window has passed
func (r *QuoteRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Quote, error) {
	query := `SELECT ` + quoteColumns + `
		FROM quotes
		WHERE status NOT IN ('converted', 'expired') AND expires_at < ?
		ORDER BY expires_at
		LIMIT ?`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, r.db.Rebind(query), now, limit)
	if err != nil {
		r.logger.Error("Failed to list expired quotes", zap.Error(err))
		return nil, fmt.Errorf("failed to list expired quotes: %w", err)
	}
	defer rows.Close()

	var quotes []*entity.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func scanQuote(s rowScanner) (*entity.Quote, error) {
	var q entity.Quote
	var status string
	var processing, totals sql.NullString

	err := s.Scan(
		&q.ID,
		&q.QuoteNumber,
		&status,
		&processing,
		&q.CustomerEmail,
		&q.CustomerName,
		&q.SourceLanguage,
		&q.TargetLanguage,
		&q.IsRush,
		&q.DeliveryFee,
		&q.Subtotal,
		&q.CertificationTotal,
		&q.TaxRate,
		&q.TaxAmount,
		&q.Total,
		&totals,
		&q.Version,
		&q.EntryPoint,
		&q.ExpiresAt,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	q.Status = workflow.State(status)
	q.ProcessingStatus = workflow.ProcessingStatus(processing.String)
	if totals.Valid && totals.String != "" {
		var b pricing.Breakdown
		if err := json.Unmarshal([]byte(totals.String), &b); err != nil {
			return nil, fmt.Errorf("failed to decode calculated totals: %w", err)
		}
		q.CalculatedTotals = &b
	}
	return &q, nil
}

func encodeTotals(b *pricing.Breakdown) (sql.NullString, error) {
	if b == nil {
		return sql.NullString{}, nil
	}
	s, err := marshalJSON(b)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: s, Valid: true}, nil
}

var _ port.QuoteRepository = (*QuoteRepository)(nil)
