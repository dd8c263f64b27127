package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	}
}

func retryable(target error) Classifier {
	return func(err error) Classification {
		return Classification{Retryable: errors.Is(err, target), RecordFailure: true}
	}
}

func TestExecute_RetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)
	errTemp := errors.New("temporary")

	attempts := 0
	err := exec.Execute(context.Background(), "vision.analyze", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, retryable(errTemp))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecute_StopsAfterMaxAttempts(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)
	errTemp := errors.New("temporary")

	attempts := 0
	err := exec.Execute(context.Background(), "vision.analyze", func(context.Context) error {
		attempts++
		return errTemp
	}, retryable(errTemp))

	assert.ErrorIs(t, err, errTemp)
	assert.Equal(t, 3, attempts)
}

func TestExecute_DoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)
	errPermanent := errors.New("permanent")

	attempts := 0
	err := exec.Execute(context.Background(), "vision.analyze", func(context.Context) error {
		attempts++
		return errPermanent
	}, nil)

	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, attempts)
}

func TestExecute_CancelledContextSkipsCall(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := exec.Execute(ctx, "vision.analyze", func(context.Context) error {
		called = true
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestExecute_OpensCircuitAfterFailures(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	exec := NewExecutor(cfg, nil)

	errDown := errors.New("provider down")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "vision.analyze", func(context.Context) error {
			return errDown
		}, nil)
		require.ErrorIs(t, err, errDown)
	}

	err := exec.Execute(context.Background(), "vision.analyze", func(context.Context) error {
		t.Fatal("operation must not run while the circuit is open")
		return nil
	}, nil)
	assert.True(t, IsCircuitOpen(err))

	// Breakers are per operation
	err = exec.Execute(context.Background(), "other", func(context.Context) error { return nil }, nil)
	assert.NoError(t, err)
}

func TestExecute_UnrecordedFailuresKeepCircuitClosed(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 1
	exec := NewExecutor(cfg, nil)

	errBadInput := errors.New("bad input")
	ignore := func(error) Classification { return Classification{} }
	for i := 0; i < 3; i++ {
		err := exec.Execute(context.Background(), "vision.analyze", func(context.Context) error {
			return errBadInput
		}, ignore)
		assert.ErrorIs(t, err, errBadInput)
		assert.False(t, IsCircuitOpen(err))
	}
}
