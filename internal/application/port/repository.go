package port

import (
	"context"
	"time"

	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
)

// Getters return (nil, nil) when the row does not exist.

// QuoteRepository defines persistence operations for Quote
type QuoteRepository interface {
	Create(ctx context.Context, quote *entity.Quote) error
	GetByID(ctx context.Context, id string) (*entity.Quote, error)
	UpdateDetails(ctx context.Context, quote *entity.Quote) error
	UpdateTotals(ctx context.Context, quote *entity.Quote) error
	// CompareAndSetStatus moves the quote only if it is still in from; it reports whether a row changed
	CompareAndSetStatus(ctx context.Context, id string, from, to workflow.State) (bool, error)
	IncrementVersion(ctx context.Context, id string) (int, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Quote, error)
}

// QuoteFileRepository defines persistence operations for QuoteFile
type QuoteFileRepository interface {
	Create(ctx context.Context, file *entity.QuoteFile) error
	GetByID(ctx context.Context, id string) (*entity.QuoteFile, error)
	ListByQuoteID(ctx context.Context, quoteID string) ([]*entity.QuoteFile, error)
	UpdateStatus(ctx context.Context, id, status, errorMsg string) error
	MarkNeedsReplacement(ctx context.Context, quoteID string, fileIDs []string) error
}

// AnalysisRepository defines persistence operations for AIAnalysisResult
type AnalysisRepository interface {
	// Upsert inserts the result or replaces the existing row for the same quote file
	Upsert(ctx context.Context, result *entity.AIAnalysisResult) error
	GetByID(ctx context.Context, id string) (*entity.AIAnalysisResult, error)
	ListByQuoteID(ctx context.Context, quoteID string) ([]*entity.AIAnalysisResult, error)
	DeleteByQuoteFileID(ctx context.Context, quoteFileID string) error
}

// HITLReviewRepository defines persistence operations for HITLReview
type HITLReviewRepository interface {
	// CreateOpen inserts a pending review unless the quote already has an open one.
	// It returns the open review and whether this call created it.
	CreateOpen(ctx context.Context, review *entity.HITLReview) (*entity.HITLReview, bool, error)
	GetByID(ctx context.Context, id string) (*entity.HITLReview, error)
	GetOpenByQuoteID(ctx context.Context, quoteID string) (*entity.HITLReview, error)
	ListOpen(ctx context.Context, limit, offset int) ([]*entity.HITLReview, error)
	// Update writes review only while its stored status is still fromStatus and
	// returns entity.ErrReviewClosed otherwise.
	Update(ctx context.Context, review *entity.HITLReview, fromStatus string) error
}

// ThresholdRepository reads the key-value threshold configuration
type ThresholdRepository interface {
	ListActive(ctx context.Context) (map[string]float64, error)
	Upsert(ctx context.Context, key string, value float64, active bool) error
}

// OrderRepository defines persistence operations for Order
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	GetByQuoteID(ctx context.Context, quoteID string) (*entity.Order, error)
	// CancelIfActive flips the order to cancelled only if it is not already; it reports whether a row changed
	CancelIfActive(ctx context.Context, id string) (bool, error)
}

// CancellationRepository defines persistence operations for OrderCancellation
type CancellationRepository interface {
	Create(ctx context.Context, cancellation *entity.OrderCancellation) error
	ListByOrderID(ctx context.Context, orderID string) ([]*entity.OrderCancellation, error)
}

// QuoteVersionRepository stores snapshots written on staff edits
type QuoteVersionRepository interface {
	Create(ctx context.Context, version *entity.QuoteVersion) error
	ListByQuoteID(ctx context.Context, quoteID string) ([]*entity.QuoteVersion, error)
}

// StatusHistoryRepository stores the quote transition audit log
type StatusHistoryRepository interface {
	Create(ctx context.Context, history *entity.StatusHistory) error
	ListByQuoteID(ctx context.Context, quoteID string) ([]*entity.StatusHistory, error)
}

// TransactionManager handles database transactions.
// Repositories called with the returned context join the transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
