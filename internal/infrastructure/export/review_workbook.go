package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/domain/entity"
)

const (
	sheetName = "Open Reviews"
	pageSize  = 200
	// maxRows keeps a single workbook bounded
	maxRows = 5000
)

var columns = []string{
	"Review ID", "Quote Number", "Customer Email", "Quote Total",
	"Status", "Priority", "Assigned To", "Trigger Reasons",
	"SLA Deadline", "Overdue", "Created At",
}

// ReviewRow is one line of the review queue workbook
type ReviewRow struct {
	Review        *entity.HITLReview
	QuoteNumber   string
	CustomerEmail string
	QuoteTotal    float64
}

type reviewLister interface {
	ListOpen(ctx context.Context, limit, offset int) ([]*entity.HITLReview, error)
}

type quoteGetter interface {
	GetByID(ctx context.Context, id string) (*entity.Quote, error)
}

// ReviewQueueExporter writes open HITL reviews to an XLSX workbook
type ReviewQueueExporter struct {
	reviews reviewLister
	quotes  quoteGetter
	logger  *zap.Logger
}

// NewReviewQueueExporter accepts the HITL review and quote repositories
func NewReviewQueueExporter(reviews reviewLister, quotes quoteGetter, logger *zap.Logger) *ReviewQueueExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewQueueExporter{reviews: reviews, quotes: quotes, logger: logger}
}

// Export loads every open review, oldest SLA first as stored, and streams the workbook to w.
// It returns the number of review rows written.
func (e *ReviewQueueExporter) Export(ctx context.Context, w io.Writer, now time.Time) (int, error) {
	rows, err := e.collect(ctx)
	if err != nil {
		return 0, err
	}
	if err := WriteReviewQueue(w, rows, now); err != nil {
		return 0, err
	}
	e.logger.Info("Review queue exported", zap.Int("rows", len(rows)))
	return len(rows), nil
}

func (e *ReviewQueueExporter) collect(ctx context.Context) ([]ReviewRow, error) {
	var rows []ReviewRow
	for offset := 0; offset < maxRows; offset += pageSize {
		page, err := e.reviews.ListOpen(ctx, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list open reviews: %w", err)
		}
		for _, review := range page {
			row := ReviewRow{Review: review}
			quote, err := e.quotes.GetByID(ctx, review.QuoteID)
			if err != nil {
				return nil, fmt.Errorf("failed to load quote %s: %w", review.QuoteID, err)
			}
			if quote != nil {
				row.QuoteNumber = quote.QuoteNumber
				row.CustomerEmail = quote.CustomerEmail
				row.QuoteTotal = quote.Total
			} else {
				e.logger.Warn("Open review references a missing quote",
					zap.String("review_id", review.ID),
					zap.String("quote_id", review.QuoteID))
			}
			rows = append(rows, row)
		}
		if len(page) < pageSize {
			break
		}
	}
	return rows, nil
}

// WriteReviewQueue renders rows into a single-sheet workbook
func WriteReviewQueue(w io.Writer, rows []ReviewRow, now time.Time) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName(file.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	overdue, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#C00000", Bold: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create overdue style: %w", err)
	}

	for i, name := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheetName, cell, name); err != nil {
			return fmt.Errorf("failed to set header %s: %w", name, err)
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	if err := file.SetCellStyle(sheetName, "A1", lastCol+"1", header); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		r := row.Review
		line := i + 2
		values := []interface{}{
			r.ID,
			row.QuoteNumber,
			row.CustomerEmail,
			row.QuoteTotal,
			r.Status,
			r.Priority,
			r.AssignedTo,
			strings.Join(r.TriggerReasons, ", "),
			r.SLADeadline.UTC().Format(time.RFC3339),
			yesNo(r.IsOverdue(now)),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		start, _ := excelize.CoordinatesToCellName(1, line)
		if err := file.SetSheetRow(sheetName, start, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", line, err)
		}
		if r.IsOverdue(now) {
			if err := file.SetCellStyle(sheetName, fmt.Sprintf("I%d", line), fmt.Sprintf("J%d", line), overdue); err != nil {
				return fmt.Errorf("failed to style row %d: %w", line, err)
			}
		}
	}

	if err := file.SetColWidth(sheetName, "A", lastCol, 20); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := file.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
