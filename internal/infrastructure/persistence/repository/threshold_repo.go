package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/infrastructure/persistence/sqldb"
)

// ThresholdRepository implements port.ThresholdRepository
type ThresholdRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewThresholdRepository creates a new threshold repository
func NewThresholdRepository(db *sqldb.DB, logger *zap.Logger) port.ThresholdRepository {
	return &ThresholdRepository{
		db:     db,
		logger: logger,
	}
}

// ListActive returns the active threshold rows as a key-value map
func (r *ThresholdRepository) ListActive(ctx context.Context) (map[string]float64, error) {
	query := `SELECT key, value FROM hitl_thresholds WHERE is_active = ?`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, r.db.Rebind(query), true)
	if err != nil {
		r.logger.Error("Failed to list hitl thresholds", zap.Error(err))
		return nil, fmt.Errorf("failed to list hitl thresholds: %w", err)
	}
	defer rows.Close()

	thresholds := make(map[string]float64)
	for rows.Next() {
		var key string
		var value float64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan hitl threshold: %w", err)
		}
		thresholds[key] = value
	}
	return thresholds, rows.Err()
}

// Upsert sets a threshold value
func (r *ThresholdRepository) Upsert(ctx context.Context, key string, value float64, active bool) error {
	query := `
		INSERT INTO hitl_thresholds (key, value, is_active, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query), key, value, active, time.Now()); err != nil {
		r.logger.Error("Failed to upsert hitl threshold", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to upsert hitl threshold: %w", err)
	}
	return nil
}

var _ port.ThresholdRepository = (*ThresholdRepository)(nil)
