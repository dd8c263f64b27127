package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/domain/pricing"
	"github.com/garyjia/translation-quotes/internal/infrastructure/persistence/sqldb"
)

// AnalysisRepository implements port.AnalysisRepository
type AnalysisRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewAnalysisRepository creates a new analysis result repository
func NewAnalysisRepository(db *sqldb.DB, logger *zap.Logger) port.AnalysisRepository {
	return &AnalysisRepository{
		db:     db,
		logger: logger,
	}
}

const analysisColumns = `id, quote_id, quote_file_id, detected_language, detected_document_type,
	word_count, page_count, billable_pages, assessed_complexity, complexity_multiplier,
	ocr_confidence, language_confidence, document_type_confidence, complexity_confidence,
	base_rate, line_total, certification_type_id, certification_price, notes, is_staff_override,
	created_at, updated_at`

// Upsert inserts the result or replaces the row already stored for the quote file.
// The row keeps its original id and created_at on conflict.
func (r *AnalysisRepository) Upsert(ctx context.Context, a *entity.AIAnalysisResult) error {
	query := `
		INSERT INTO ai_analysis_results (` + analysisColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (quote_file_id) DO UPDATE SET
			detected_language = excluded.detected_language,
			detected_document_type = excluded.detected_document_type,
			word_count = excluded.word_count,
			page_count = excluded.page_count,
			billable_pages = excluded.billable_pages,
			assessed_complexity = excluded.assessed_complexity,
			complexity_multiplier = excluded.complexity_multiplier,
			ocr_confidence = excluded.ocr_confidence,
			language_confidence = excluded.language_confidence,
			document_type_confidence = excluded.document_type_confidence,
			complexity_confidence = excluded.complexity_confidence,
			base_rate = excluded.base_rate,
			line_total = excluded.line_total,
			certification_type_id = excluded.certification_type_id,
			certification_price = excluded.certification_price,
			notes = excluded.notes,
			is_staff_override = excluded.is_staff_override,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`

	err := r.db.Executor(ctx).QueryRowContext(ctx, r.db.Rebind(query),
		a.ID,
		a.QuoteID,
		a.QuoteFileID,
		a.DetectedLanguage,
		a.DetectedDocumentType,
		a.WordCount,
		a.PageCount,
		a.BillablePages,
		string(a.AssessedComplexity),
		a.ComplexityMultiplier,
		nullFloat(a.OCRConfidence),
		nullFloat(a.LanguageConfidence),
		nullFloat(a.DocumentTypeConfidence),
		nullFloat(a.ComplexityConfidence),
		a.BaseRate,
		a.LineTotal,
		a.CertificationTypeID,
		a.CertificationPrice,
		a.Notes,
		a.IsStaffOverride,
		a.CreatedAt,
		a.UpdatedAt,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to upsert analysis result",
			zap.String("quote_file_id", a.QuoteFileID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert analysis result: %w", err)
	}
	return nil
}

// GetByID retrieves an analysis result by ID
func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*entity.AIAnalysisResult, error) {
	query := `SELECT ` + analysisColumns + ` FROM ai_analysis_results WHERE id = ?`

	a, err := scanAnalysis(r.db.Executor(ctx).QueryRowContext(ctx, r.db.Rebind(query), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get analysis result", zap.String("analysis_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get analysis result: %w", err)
	}
	return a, nil
}

// ListByQuoteID returns every analysis result of a quote
func (r *AnalysisRepository) ListByQuoteID(ctx context.Context, quoteID string) ([]*entity.AIAnalysisResult, error) {
	query := `SELECT ` + analysisColumns + ` FROM ai_analysis_results WHERE quote_id = ? ORDER BY created_at, id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, r.db.Rebind(query), quoteID)
	if err != nil {
		r.logger.Error("Failed to list analysis results", zap.String("quote_id", quoteID), zap.Error(err))
		return nil, fmt.Errorf("failed to list analysis results: %w", err)
	}
	defer rows.Close()

	var results []*entity.AIAnalysisResult
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis result: %w", err)
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// DeleteByQuoteFileID removes the analysis of a superseded file
func (r *AnalysisRepository) DeleteByQuoteFileID(ctx context.Context, quoteFileID string) error {
	query := `DELETE FROM ai_analysis_results WHERE quote_file_id = ?`

	if _, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Rebind(query), quoteFileID); err != nil {
		r.logger.Error("Failed to delete analysis result", zap.String("quote_file_id", quoteFileID), zap.Error(err))
		return fmt.Errorf("failed to delete analysis result: %w", err)
	}
	return nil
}

func scanAnalysis(s rowScanner) (*entity.AIAnalysisResult, error) {
	var a entity.AIAnalysisResult
	var complexity string
	var ocr, lang, docType, cx sql.NullFloat64

	err := s.Scan(
		&a.ID,
		&a.QuoteID,
		&a.QuoteFileID,
		&a.DetectedLanguage,
		&a.DetectedDocumentType,
		&a.WordCount,
		&a.PageCount,
		&a.BillablePages,
		&complexity,
		&a.ComplexityMultiplier,
		&ocr,
		&lang,
		&docType,
		&cx,
		&a.BaseRate,
		&a.LineTotal,
		&a.CertificationTypeID,
		&a.CertificationPrice,
		&a.Notes,
		&a.IsStaffOverride,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.AssessedComplexity = pricing.ParseComplexity(complexity)
	a.OCRConfidence = floatPtr(ocr)
	a.LanguageConfidence = floatPtr(lang)
	a.DocumentTypeConfidence = floatPtr(docType)
	a.ComplexityConfidence = floatPtr(cx)
	return &a, nil
}

var _ port.AnalysisRepository = (*AnalysisRepository)(nil)
