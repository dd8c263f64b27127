// Package service holds the application use cases of the quote engine.
package service

import (
	"context"
	"time"

	"github.com/garyjia/translation-quotes/internal/domain/event"
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// EventPublisher publishes domain events without blocking the caller
type EventPublisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}

// Metrics records business outcomes
type Metrics interface {
	ObserveProcessing(outcome string, documents int, duration time.Duration)
	ObserveGate(passed bool, reasons []string)
	ObserveTransition(from, to workflow.State)
	ObserveRefund(method, status string)
}

// Processing outcomes reported to Metrics
const (
	OutcomeQuoteReady     = "quote_ready"
	OutcomeReviewRequired = "review_required"
	OutcomeHITL           = "hitl"
	OutcomeError          = "error"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type nopPublisher struct{}

func (nopPublisher) DispatchAsync(context.Context, *event.Event) {}

type nopMetrics struct{}

func (nopMetrics) ObserveProcessing(string, int, time.Duration)     {}
func (nopMetrics) ObserveGate(bool, []string)                       {}
func (nopMetrics) ObserveTransition(workflow.State, workflow.State) {}
func (nopMetrics) ObserveRefund(string, string)                     {}

func orNopLogger(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}

func orNopPublisher(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

func orNopMetrics(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
