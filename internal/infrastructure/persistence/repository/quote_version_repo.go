package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/infrastructure/persistence/sqldb"
)

// QuoteVersionRepository implements port.QuoteVersionRepository
type QuoteVersionRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewQuoteVersionRepository creates a new quote version repository
func NewQuoteVersionRepository(db *sqldb.DB, logger *zap.Logger) port.QuoteVersionRepository {
	return &QuoteVersionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a version snapshot
func (r *QuoteVersionRepository) Create(ctx context.Context, v *entity.QuoteVersion) error {
	query := `
		INSERT INTO quote_versions (id, quote_id, version, snapshot, changed_by, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query),
		v.ID, v.QuoteID, v.Version, v.Snapshot, v.ChangedBy, v.Reason, v.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create quote version",
			zap.String("quote_id", v.QuoteID),
			zap.Int("version", v.Version),
			zap.Error(err))
		return fmt.Errorf("failed to create quote version: %w", err)
	}
	return nil
}

// ListByQuoteID returns the snapshots of a quote, oldest first
func (r *QuoteVersionRepository) ListByQuoteID(ctx context.Context, quoteID string) ([]*entity.QuoteVersion, error) {
	query := `
		SELECT id, quote_id, version, snapshot, changed_by, reason, created_at
		FROM quote_versions
		WHERE quote_id = ?
		ORDER BY version
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, r.db.Rebind(query), quoteID)
	if err != nil {
		r.logger.Error("Failed to list quote versions", zap.String("quote_id", quoteID), zap.Error(err))
		return nil, fmt.Errorf("failed to list quote versions: %w", err)
	}
	defer rows.Close()

	var versions []*entity.QuoteVersion
	for rows.Next() {
		var v entity.QuoteVersion
		if err := rows.Scan(&v.ID, &v.QuoteID, &v.Version, &v.Snapshot, &v.ChangedBy, &v.Reason, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote version: %w", err)
		}
		versions = append(versions, &v)
	}
	return versions, rows.Err()
}

var _ port.QuoteVersionRepository = (*QuoteVersionRepository)(nil)
