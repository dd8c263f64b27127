package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/domain/event"
	"github.com/garyjia/translation-quotes/internal/domain/pricing"
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
)

// Reason attached to review events that were not raised by the threshold gate
const (
	ReasonFileProcessingFailed = "file_processing_failed"
	ReasonProcessingTimeout    = "processing_timeout"

	// ReasonDegradedAnalysis marks a quote priced from a fallback analysis
	ReasonDegradedAnalysis = "degraded_analysis"
)

// PricingDefaults are the rates applied to freshly analysed documents
type PricingDefaults struct {
	BaseRate           float64
	CertificationPrice float64
	RushFee            float64
}

// ProcessingOptions configures the analysis pipeline
type ProcessingOptions struct {
	MaxConcurrentFiles int
	Pricing            PricingDefaults
}

// HITLOutcome reports whether the gate routed the quote to staff
type HITLOutcome struct {
	Required bool     `json:"required"`
	Reasons  []string `json:"reasons"`
	ReviewID string   `json:"reviewId,omitempty"`
}

// ProcessResult is returned by ProcessQuote
type ProcessResult struct {
	Success            bool               `json:"success"`
	QuoteID            string             `json:"quoteId"`
	Status             workflow.State     `json:"status"`
	DocumentsProcessed int                `json:"documentsProcessed"`
	DocumentsFailed    int                `json:"documentsFailed"`
	DocumentsDegraded  int                `json:"documentsDegraded"`
	Totals             *pricing.Breakdown `json:"totals"`
	HITL               HITLOutcome        `json:"hitl"`
}

// AnalysisOverride is a staff correction of one analysis row. Nil fields are left unchanged.
type AnalysisOverride struct {
	AnalysisID          string
	StaffID             string
	Reason              string
	WordCount           *int
	Complexity          *string
	BaseRate            *float64
	CertificationPrice  *float64
	CertificationTypeID *string
}

// ProcessingService runs document analysis and keeps quote totals in sync
type ProcessingService interface {
	// ProcessQuote analyses the quote's pending files, or only fileID when it is set
	ProcessQuote(ctx context.Context, quoteID, fileID string) (*ProcessResult, error)
	RecalculateTotals(ctx context.Context, quoteID string) (*pricing.Breakdown, error)
	// MarkProcessingTimeout moves a quote still in processing to review_required.
	// It returns false when the server already finished.
	MarkProcessingTimeout(ctx context.Context, quoteID string) (bool, error)
	OverrideAnalysis(ctx context.Context, req AnalysisOverride) (*entity.Quote, error)
}

type processingServiceImpl struct {
	quoteRepo    port.QuoteRepository
	fileRepo     port.QuoteFileRepository
	analysisRepo port.AnalysisRepository
	versionRepo  port.QuoteVersionRepository
	blobStore    port.BlobStore
	analyzer     port.DocumentAnalyzer
	calculator   *pricing.Calculator
	transitions  TransitionService
	thresholds   ThresholdService
	txManager    port.TransactionManager
	publisher    EventPublisher
	metrics      Metrics
	logger       Logger
	opts         ProcessingOptions
}

// NewProcessingService creates a new ProcessingService
func NewProcessingService(
	quoteRepo port.QuoteRepository,
	fileRepo port.QuoteFileRepository,
	analysisRepo port.AnalysisRepository,
	versionRepo port.QuoteVersionRepository,
	blobStore port.BlobStore,
	analyzer port.DocumentAnalyzer,
	calculator *pricing.Calculator,
	transitions TransitionService,
	thresholds ThresholdService,
	txManager port.TransactionManager,
	publisher EventPublisher,
	metrics Metrics,
	logger Logger,
	opts ProcessingOptions,
) ProcessingService {
	if opts.MaxConcurrentFiles <= 0 {
		opts.MaxConcurrentFiles = 3
	}
	return &processingServiceImpl{
		quoteRepo:    quoteRepo,
		fileRepo:     fileRepo,
		analysisRepo: analysisRepo,
		versionRepo:  versionRepo,
		blobStore:    blobStore,
		analyzer:     analyzer,
		calculator:   calculator,
		transitions:  transitions,
		thresholds:   thresholds,
		txManager:    txManager,
		publisher:    orNopPublisher(publisher),
		metrics:      orNopMetrics(metrics),
		logger:       orNopLogger(logger),
		opts:         opts,
	}
}

// ProcessQuote analyses files with bounded concurrency, reprices the quote and runs the gate.
// A file that cannot be downloaded or parsed is marked failed and the others continue.
func (s *processingServiceImpl) ProcessQuote(ctx context.Context, quoteID, fileID string) (*ProcessResult, error) {
	start := time.Now()

	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if quote == nil {
		return nil, entity.ErrQuoteNotFound
	}
	if quote.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", entity.ErrQuoteTerminal, quote.Status)
	}

	files, err := s.selectFiles(ctx, quoteID, fileID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, entity.ErrNoFilesToProcess
	}

	if quote.Status != workflow.StateProcessing {
		if err := s.transitions.ApplyTransition(ctx, quoteID, quote.Status, workflow.StateProcessing, TransitionMeta{
			Actor:    "system",
			Metadata: map[string]interface{}{"files": len(files)},
		}); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Processing quote", "quote_id", quoteID, "files", len(files))

	hint := groupHint(files)
	var (
		mu        sync.Mutex
		processed int
		failed    int
		degraded  int
		g         errgroup.Group
	)
	g.SetLimit(s.opts.MaxConcurrentFiles)
	for _, f := range files {
		g.Go(func() error {
			fallback, err := s.processFile(ctx, quote, f, hint)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				s.logger.Error("Failed to process file", "error", err, "quote_id", quoteID, "file_id", f.ID)
				return nil
			}
			processed++
			if fallback {
				degraded++
				s.logger.Info("File priced from fallback analysis", "quote_id", quoteID, "file_id", f.ID)
			}
			return nil
		})
	}
	_ = g.Wait()

	totals, err := s.RecalculateTotals(ctx, quoteID)
	if err != nil {
		s.metrics.ObserveProcessing(OutcomeError, processed, time.Since(start))
		return nil, err
	}

	var reviewReasons []string
	if failed > 0 {
		reviewReasons = append(reviewReasons, ReasonFileProcessingFailed)
	}
	if degraded > 0 {
		reviewReasons = append(reviewReasons, ReasonDegradedAnalysis)
	}
	target := workflow.StateQuoteReady
	if len(reviewReasons) > 0 {
		target = workflow.StateReviewRequired
	}
	status, err := s.completeProcessing(ctx, quoteID, target)
	if err != nil {
		s.metrics.ObserveProcessing(OutcomeError, processed, time.Since(start))
		return nil, err
	}

	result := &ProcessResult{
		Success:            true,
		QuoteID:            quoteID,
		Status:             status,
		DocumentsProcessed: processed,
		DocumentsFailed:    failed,
		DocumentsDegraded:  degraded,
		Totals:             totals,
		HITL:               HITLOutcome{Reasons: []string{}},
	}

	if status == workflow.StateQuoteReady || status == workflow.StateReviewRequired {
		gate, err := s.thresholds.CheckThresholds(ctx, quoteID)
		if err != nil {
			s.logger.Error("Threshold check failed", "error", err, "quote_id", quoteID)
		} else if !gate.Passed {
			result.HITL = HITLOutcome{Required: true, Reasons: gate.TriggerReasons, ReviewID: gate.ReviewID}
			result.Status = workflow.StateHITLPending
		}
	}

	outcome := OutcomeQuoteReady
	switch {
	case result.HITL.Required:
		outcome = OutcomeHITL
	case result.Status == workflow.StateQuoteReady:
		s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeQuoteReady, quoteID, map[string]interface{}{
			event.KeyQuoteNumber: quote.QuoteNumber,
			event.KeyTotal:       totals.Total,
		}))
	case result.Status == workflow.StateReviewRequired:
		outcome = OutcomeReviewRequired
		s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeQuoteReviewRequired, quoteID, map[string]interface{}{
			event.KeyQuoteNumber:    quote.QuoteNumber,
			event.KeyTriggerReasons: reviewReasons,
		}))
	}
	s.metrics.ObserveProcessing(outcome, processed, time.Since(start))

	s.logger.Info("Quote processed",
		"quote_id", quoteID,
		"status", result.Status,
		"processed", processed,
		"failed", failed,
		"degraded", degraded,
		"total", totals.Total,
		"duration", time.Since(start),
	)
	return result, nil
}

// selectFiles returns the files to analyse. With no fileID, flagged files are superseded
// by newly uploaded ones.
func (s *processingServiceImpl) selectFiles(ctx context.Context, quoteID, fileID string) ([]*entity.QuoteFile, error) {
	if fileID != "" {
		f, err := s.fileRepo.GetByID(ctx, fileID)
		if err != nil {
			return nil, fmt.Errorf("get file: %w", err)
		}
		if f == nil || f.QuoteID != quoteID {
			return nil, entity.ErrQuoteFileNotFound
		}
		return []*entity.QuoteFile{f}, nil
	}

	all, err := s.fileRepo.ListByQuoteID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if len(all) == 0 {
		return nil, entity.ErrNoFilesToProcess
	}

	var pending, flagged []*entity.QuoteFile
	for _, f := range all {
		switch {
		case f.NeedsReplacement && f.AIProcessingStatus != entity.FileStatusSkipped:
			flagged = append(flagged, f)
		case f.NeedsAnalysis() && !f.NeedsReplacement:
			pending = append(pending, f)
		}
	}

	if len(pending) > 0 {
		for _, f := range flagged {
			if err := s.fileRepo.UpdateStatus(ctx, f.ID, entity.FileStatusSkipped, "superseded by replacement upload"); err != nil {
				return nil, fmt.Errorf("skip replaced file: %w", err)
			}
			if err := s.analysisRepo.DeleteByQuoteFileID(ctx, f.ID); err != nil {
				return nil, fmt.Errorf("drop replaced analysis: %w", err)
			}
		}
	}
	return pending, nil
}

// processFile analyses one file and reports whether the stored result is a fallback
func (s *processingServiceImpl) processFile(ctx context.Context, quote *entity.Quote, f *entity.QuoteFile, hint string) (bool, error) {
	if err := s.fileRepo.UpdateStatus(ctx, f.ID, entity.FileStatusProcessing, ""); err != nil {
		return false, err
	}

	fail := func(cause error) (bool, error) {
		if err := s.fileRepo.UpdateStatus(ctx, f.ID, entity.FileStatusFailed, cause.Error()); err != nil {
			s.logger.Error("Failed to mark file failed", "error", err, "file_id", f.ID)
		}
		return false, cause
	}

	content, err := s.blobStore.Get(ctx, f.StoragePath)
	if err != nil {
		return fail(fmt.Errorf("download %s: %w", f.StoragePath, err))
	}

	analysis, err := s.analyzer.Analyze(ctx, port.AnalysisInput{
		FileName:  f.OriginalFilename,
		MimeType:  f.MimeType,
		Content:   content,
		GroupHint: hint,
	})
	if err != nil {
		return fail(fmt.Errorf("analyze: %w", err))
	}

	result := s.buildResult(quote.ID, f.ID, analysis)
	if err := s.analysisRepo.Upsert(ctx, result); err != nil {
		return fail(fmt.Errorf("save analysis: %w", err))
	}
	if err := s.fileRepo.UpdateStatus(ctx, f.ID, entity.FileStatusCompleted, ""); err != nil {
		return false, err
	}
	return analysis.Degraded, nil
}

func (s *processingServiceImpl) buildResult(quoteID, fileID string, a *port.DocumentAnalysis) *entity.AIAnalysisResult {
	cx := pricing.ParseComplexity(string(a.Complexity))
	line := s.calculator.PriceLine(a.WordCount, cx, s.opts.Pricing.BaseRate, s.opts.Pricing.CertificationPrice)
	now := time.Now()

	ocr, lang, docType, cxConf := a.OCRConfidence, a.LanguageConfidence, a.DocumentTypeConfidence, a.ComplexityConfidence
	return &entity.AIAnalysisResult{
		ID:                     uuid.NewString(),
		QuoteID:                quoteID,
		QuoteFileID:            fileID,
		DetectedLanguage:       a.DetectedLanguage,
		DetectedDocumentType:   a.DocumentType,
		WordCount:              a.WordCount,
		PageCount:              a.PageCount,
		BillablePages:          line.BillablePages,
		AssessedComplexity:     cx,
		ComplexityMultiplier:   s.calculator.Multiplier(cx),
		OCRConfidence:          &ocr,
		LanguageConfidence:     &lang,
		DocumentTypeConfidence: &docType,
		ComplexityConfidence:   &cxConf,
		BaseRate:               s.opts.Pricing.BaseRate,
		LineTotal:              line.LineTotal,
		CertificationPrice:     line.CertificationPrice,
		Notes:                  a.Notes,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// completeProcessing leaves processing for target. When a client timeout already moved the
// quote to review_required, a successful run still promotes it to quote_ready.
func (s *processingServiceImpl) completeProcessing(ctx context.Context, quoteID string, target workflow.State) (workflow.State, error) {
	applied, err := s.transitions.TryTransition(ctx, quoteID, workflow.StateProcessing, target, TransitionMeta{Actor: "system"})
	if err != nil {
		return "", err
	}
	if applied {
		return target, nil
	}

	current, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return "", fmt.Errorf("reload quote: %w", err)
	}
	if current == nil {
		return "", entity.ErrQuoteNotFound
	}
	if current.Status == workflow.StateReviewRequired && target == workflow.StateQuoteReady {
		applied, err := s.transitions.TryTransition(ctx, quoteID, workflow.StateReviewRequired, workflow.StateQuoteReady, TransitionMeta{
			Actor:  "system",
			Reason: "analysis completed after client timeout",
		})
		if err != nil {
			return "", err
		}
		if applied {
			return workflow.StateQuoteReady, nil
		}
		current, err = s.quoteRepo.GetByID(ctx, quoteID)
		if err != nil {
			return "", fmt.Errorf("reload quote: %w", err)
		}
		if current == nil {
			return "", entity.ErrQuoteNotFound
		}
	}
	return current.Status, nil
}

// RecalculateTotals reprices the quote from its analysis rows
func (s *processingServiceImpl) RecalculateTotals(ctx context.Context, quoteID string) (*pricing.Breakdown, error) {
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if quote == nil {
		return nil, entity.ErrQuoteNotFound
	}

	analyses, err := s.analysisRepo.ListByQuoteID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}

	lines := make([]pricing.Line, 0, len(analyses))
	for _, a := range analyses {
		lines = append(lines, a.PricingLine())
	}
	breakdown := s.calculator.Aggregate(lines, s.quoteFees(quote))
	quote.ApplyBreakdown(breakdown)

	if err := s.quoteRepo.UpdateTotals(ctx, quote); err != nil {
		return nil, fmt.Errorf("update totals: %w", err)
	}
	return &breakdown, nil
}

func (s *processingServiceImpl) quoteFees(q *entity.Quote) pricing.Fees {
	fees := pricing.Fees{
		IsRush:      q.IsRush,
		RushFee:     s.opts.Pricing.RushFee,
		DeliveryFee: q.DeliveryFee,
	}
	if q.TaxRate > 0 {
		fees.TaxRates = []pricing.TaxRate{{Name: "tax", Rate: q.TaxRate}}
	}
	return fees
}

// MarkProcessingTimeout is the compare-and-set fallback for clients that stopped waiting
func (s *processingServiceImpl) MarkProcessingTimeout(ctx context.Context, quoteID string) (bool, error) {
	applied, err := s.transitions.TryTransition(ctx, quoteID, workflow.StateProcessing, workflow.StateReviewRequired, TransitionMeta{
		Actor:  "client_timeout",
		Reason: "processing timed out",
	})
	if err != nil {
		return false, err
	}
	if applied {
		s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeQuoteReviewRequired, quoteID, map[string]interface{}{
			event.KeyTriggerReasons: []string{ReasonProcessingTimeout},
		}))
	}
	return applied, nil
}

// OverrideAnalysis applies a staff correction, reprices the quote and records a new version
func (s *processingServiceImpl) OverrideAnalysis(ctx context.Context, req AnalysisOverride) (*entity.Quote, error) {
	if err := validateOverride(req); err != nil {
		return nil, err
	}

	var quoteID string
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		analysis, err := s.analysisRepo.GetByID(txCtx, req.AnalysisID)
		if err != nil {
			return fmt.Errorf("get analysis: %w", err)
		}
		if analysis == nil {
			return entity.ErrAnalysisNotFound
		}
		quoteID = analysis.QuoteID

		quote, err := s.quoteRepo.GetByID(txCtx, quoteID)
		if err != nil {
			return fmt.Errorf("get quote: %w", err)
		}
		if quote == nil {
			return entity.ErrQuoteNotFound
		}
		if quote.Status.IsTerminal() {
			return fmt.Errorf("%w: %s", entity.ErrQuoteTerminal, quote.Status)
		}

		s.applyOverride(analysis, req)
		if err := s.analysisRepo.Upsert(txCtx, analysis); err != nil {
			return fmt.Errorf("save analysis: %w", err)
		}
		if _, err := s.RecalculateTotals(txCtx, quoteID); err != nil {
			return err
		}

		version, err := s.quoteRepo.IncrementVersion(txCtx, quoteID)
		if err != nil {
			return fmt.Errorf("increment version: %w", err)
		}

		snapshot, err := s.snapshot(txCtx, quoteID)
		if err != nil {
			return err
		}
		return s.versionRepo.Create(txCtx, &entity.QuoteVersion{
			ID:        uuid.NewString(),
			QuoteID:   quoteID,
			Version:   version,
			Snapshot:  snapshot,
			ChangedBy: req.StaffID,
			Reason:    req.Reason,
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		s.logger.Error("Failed to override analysis", "error", err, "analysis_id", req.AnalysisID)
		return nil, err
	}

	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("reload quote: %w", err)
	}
	s.logger.Info("Analysis overridden", "analysis_id", req.AnalysisID, "quote_id", quoteID, "staff_id", req.StaffID, "version", quote.Version)
	return quote, nil
}

func (s *processingServiceImpl) applyOverride(a *entity.AIAnalysisResult, req AnalysisOverride) {
	if req.WordCount != nil {
		a.WordCount = *req.WordCount
	}
	if req.Complexity != nil {
		a.AssessedComplexity = pricing.ParseComplexity(*req.Complexity)
	}
	if req.BaseRate != nil {
		a.BaseRate = *req.BaseRate
	}
	if req.CertificationPrice != nil {
		a.CertificationPrice = *req.CertificationPrice
	}
	if req.CertificationTypeID != nil {
		a.CertificationTypeID = *req.CertificationTypeID
	}

	line := s.calculator.PriceLine(a.WordCount, a.AssessedComplexity, a.BaseRate, a.CertificationPrice)
	a.BillablePages = line.BillablePages
	a.LineTotal = line.LineTotal
	a.CertificationPrice = line.CertificationPrice
	a.ComplexityMultiplier = s.calculator.Multiplier(a.AssessedComplexity)
	a.IsStaffOverride = true
	a.UpdatedAt = time.Now()
}

func (s *processingServiceImpl) snapshot(ctx context.Context, quoteID string) (string, error) {
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return "", fmt.Errorf("get quote: %w", err)
	}
	analyses, err := s.analysisRepo.ListByQuoteID(ctx, quoteID)
	if err != nil {
		return "", fmt.Errorf("list analyses: %w", err)
	}
	b, err := json.Marshal(map[string]interface{}{
		"quote":    quote,
		"analyses": analyses,
	})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(b), nil
}

func validateOverride(req AnalysisOverride) error {
	var problems []string
	if req.AnalysisID == "" {
		problems = append(problems, "analysis id is required")
	}
	if req.StaffID == "" {
		problems = append(problems, "staff id is required")
	}
	if req.WordCount != nil && *req.WordCount < 0 {
		problems = append(problems, "word count must not be negative")
	}
	if req.BaseRate != nil && *req.BaseRate < 0 {
		problems = append(problems, "base rate must not be negative")
	}
	if req.CertificationPrice != nil && *req.CertificationPrice < 0 {
		problems = append(problems, "certification price must not be negative")
	}
	if req.Complexity != nil && !pricing.Complexity(*req.Complexity).IsValid() {
		problems = append(problems, "complexity must be easy, medium or hard")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", entity.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

func groupHint(files []*entity.QuoteFile) string {
	if len(files) < 2 {
		return ""
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.OriginalFilename)
	}
	return fmt.Sprintf("This quote contains %d documents: %s", len(files), strings.Join(names, ", "))
}
