package service

import (
	"context"
	"time"

	"github.com/garyjia/translation-quotes/internal/domain/workflow"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultPollTimeout  = 45 * time.Second
)

// StatusReader reads the polling view of a quote
type StatusReader interface {
	GetStatus(ctx context.Context, quoteID string) (*QuoteStatus, error)
}

// TimeoutMarker applies the processing timeout fallback
type TimeoutMarker interface {
	MarkProcessingTimeout(ctx context.Context, quoteID string) (bool, error)
}

// StatusPoller waits for a quote to leave processing on behalf of a client.
// When the timeout elapses the quote is moved to review_required so the customer is never stuck;
// a cancelled context stops polling without writing anything.
type StatusPoller struct {
	reader   StatusReader
	marker   TimeoutMarker
	interval time.Duration
	timeout  time.Duration
	logger   Logger
}

// NewStatusPoller creates a poller. Zero durations use 3s and 45s.
func NewStatusPoller(reader StatusReader, marker TimeoutMarker, interval, timeout time.Duration, logger Logger) *StatusPoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	return &StatusPoller{
		reader:   reader,
		marker:   marker,
		interval: interval,
		timeout:  timeout,
		logger:   orNopLogger(logger),
	}
}

// Wait polls until the quote is no longer processing, the timeout fires or ctx is done
func (p *StatusPoller) Wait(ctx context.Context, quoteID string) (*QuoteStatus, error) {
	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		status, err := p.reader.GetStatus(ctx, quoteID)
		if err != nil {
			return nil, err
		}
		if status.Status != workflow.StateProcessing {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-deadline.C:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			applied, err := p.marker.MarkProcessingTimeout(ctx, quoteID)
			if err != nil {
				return nil, err
			}
			p.logger.Info("Processing wait timed out", "quote_id", quoteID, "applied", applied, "timeout", p.timeout)

			status, err := p.reader.GetStatus(ctx, quoteID)
			if err != nil {
				return nil, err
			}
			status.TimedOut = applied
			return status, nil

		case <-ticker.C:
		}
	}
}
