package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// QuoteExpirer expires quotes whose validity window has passed
type QuoteExpirer interface {
	ExpireStale(ctx context.Context, now time.Time, limit int) (int, error)
}

// ExpiryWorkerConfig holds configuration for the expiry sweep
type ExpiryWorkerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// DefaultExpiryWorkerConfig returns default configuration
func DefaultExpiryWorkerConfig() ExpiryWorkerConfig {
	return ExpiryWorkerConfig{
		Interval:  10 * time.Minute,
		BatchSize: 200,
	}
}

// ExpiryWorker periodically moves stale quotes to expired
type ExpiryWorker struct {
	config  ExpiryWorkerConfig
	expirer QuoteExpirer
	now     func() time.Time
	logger  *zap.Logger

	mu           sync.Mutex
	cancel       context.CancelFunc
	done         chan struct{}
	expiredCount int
	lastError    error
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(config ExpiryWorkerConfig, expirer QuoteExpirer, logger *zap.Logger) *ExpiryWorker {
	def := DefaultExpiryWorkerConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	return &ExpiryWorker{
		config:  config,
		expirer: expirer,
		now:     time.Now,
		logger:  logger,
	}
}

// Start runs one sweep immediately and then one per interval
func (w *ExpiryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return fmt.Errorf("expiry worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	w.logger.Info("ExpiryWorker started",
		zap.Duration("interval", w.config.Interval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.loop(runCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (w *ExpiryWorker) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()
	<-done

	w.logger.Info("ExpiryWorker stopped", zap.Int("expired_count", w.ExpiredCount()))
	return nil
}

// Name returns the worker name for identification
func (w *ExpiryWorker) Name() string {
	return "ExpiryWorker"
}

// ExpiredCount returns how many quotes this worker has expired
func (w *ExpiryWorker) ExpiredCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expiredCount
}

// LastError returns the error of the most recent failed sweep
func (w *ExpiryWorker) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastError
}

func (w *ExpiryWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		w.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// sweep drains expired quotes batch by batch
func (w *ExpiryWorker) sweep(ctx context.Context) {
	total := 0
	for ctx.Err() == nil {
		n, err := w.expirer.ExpireStale(ctx, w.now(), w.config.BatchSize)
		w.mu.Lock()
		w.expiredCount += n
		if err != nil {
			w.lastError = err
		}
		w.mu.Unlock()
		total += n

		if err != nil {
			if ctx.Err() == nil {
				w.logger.Error("Failed to expire quotes", zap.Error(err))
			}
			break
		}
		if n < w.config.BatchSize {
			break
		}
	}
	if total > 0 {
		w.logger.Info("Expired stale quotes", zap.Int("count", total))
	}
}
