package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/infrastructure/persistence/sqldb"
)

// QuoteFileRepository implements port.QuoteFileRepository
type QuoteFileRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewQuoteFileRepository creates a new quote file repository
func NewQuoteFileRepository(db *sqldb.DB, logger *zap.Logger) port.QuoteFileRepository {
	return &QuoteFileRepository{
		db:     db,
		logger: logger,
	}
}

const quoteFileColumns = `id, quote_id, original_filename, storage_path, mime_type, file_size,
	ai_processing_status, needs_replacement, processing_error, created_at, updated_at`

// Create inserts a new quote file
func (r *QuoteFileRepository) Create(ctx context.Context, file *entity.QuoteFile) error {
	query := `
		INSERT INTO quote_files (
			id, quote_id, original_filename, storage_path, mime_type, file_size,
			ai_processing_status, needs_replacement, processing_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query),
		file.ID,
		file.QuoteID,
		file.OriginalFilename,
		file.StoragePath,
		file.MimeType,
		file.FileSize,
		file.AIProcessingStatus,
		file.NeedsReplacement,
		file.ProcessingError,
		file.CreatedAt,
		file.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create quote file", zap.String("quote_id", file.QuoteID), zap.Error(err))
		return fmt.Errorf("failed to create quote file: %w", err)
	}
	return nil
}

// GetByID retrieves a quote file by ID
func (r *QuoteFileRepository) GetByID(ctx context.Context, id string) (*entity.QuoteFile, error) {
	query := `SELECT ` + quoteFileColumns + ` FROM quote_files WHERE id = ?`

	file, err := scanQuoteFile(r.db.Executor(ctx).QueryRowContext(ctx, r.db.Rebind(query), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get quote file", zap.String("file_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get quote file: %w", err)
	}
	return file, nil
}

// ListByQuoteID returns the files of a quote in upload order
func (r *QuoteFileRepository) ListByQuoteID(ctx context.Context, quoteID string) ([]*entity.QuoteFile, error) {
	query := `SELECT ` + quoteFileColumns + ` FROM quote_files WHERE quote_id = ? ORDER BY created_at, id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, r.db.Rebind(query), quoteID)
	if err != nil {
		r.logger.Error("Failed to list quote files", zap.String("quote_id", quoteID), zap.Error(err))
		return nil, fmt.Errorf("failed to list quote files: %w", err)
	}
	defer rows.Close()

	var files []*entity.QuoteFile
	for rows.Next() {
		f, err := scanQuoteFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// UpdateStatus sets the analysis status and error message of a file
func (r *QuoteFileRepository) UpdateStatus(ctx context.Context, id, status, errorMsg string) error {
	query := `UPDATE quote_files SET ai_processing_status = ?, processing_error = ?, updated_at = ? WHERE id = ?`

	_, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query), status, errorMsg, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update quote file status", zap.String("file_id", id), zap.Error(err))
		return fmt.Errorf("failed to update quote file status: %w", err)
	}
	return nil
}

// MarkNeedsReplacement flags files for re-upload. An empty fileIDs flags every file of the quote.
func (r *QuoteFileRepository) MarkNeedsReplacement(ctx context.Context, quoteID string, fileIDs []string) error {
	query := `UPDATE quote_files SET needs_replacement = ?, updated_at = ? WHERE quote_id = ?`
	args := []interface{}{true, time.Now(), quoteID}

	if len(fileIDs) > 0 {
		query += ` AND id IN (?` + strings.Repeat(`, ?`, len(fileIDs)-1) + `)`
		for _, id := range fileIDs {
			args = append(args, id)
		}
	}

	if _, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to flag files for replacement", zap.String("quote_id", quoteID), zap.Error(err))
		return fmt.Errorf("failed to flag files for replacement: %w", err)
	}
	return nil
}

func scanQuoteFile(s rowScanner) (*entity.QuoteFile, error) {
	var f entity.QuoteFile
	err := s.Scan(
		&f.ID,
		&f.QuoteID,
		&f.OriginalFilename,
		&f.StoragePath,
		&f.MimeType,
		&f.FileSize,
		&f.AIProcessingStatus,
		&f.NeedsReplacement,
		&f.ProcessingError,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

var _ port.QuoteFileRepository = (*QuoteFileRepository)(nil)
