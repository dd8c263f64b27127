package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockExpirer struct {
	mu      sync.Mutex
	batches []int
	err     error
	calls   int
	limits  []int
}

func (m *mockExpirer) ExpireStale(ctx context.Context, now time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits = append(m.limits, limit)
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	if len(m.batches) == 0 {
		return 0, nil
	}
	n := m.batches[0]
	m.batches = m.batches[1:]
	return n, nil
}

func (m *mockExpirer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestExpiryWorker_SweepDrainsFullBatches(t *testing.T) {
	expirer := &mockExpirer{batches: []int{2, 2, 1}}
	w := NewExpiryWorker(ExpiryWorkerConfig{Interval: time.Hour, BatchSize: 2}, expirer, zap.NewNop())

	w.sweep(context.Background())

	assert.Equal(t, 3, expirer.callCount())
	assert.Equal(t, []int{2, 2, 2}, expirer.limits)
	assert.Equal(t, 5, w.ExpiredCount())
}

func TestExpiryWorker_SweepStopsOnError(t *testing.T) {
	expirer := &mockExpirer{err: errors.New("database is locked")}
	w := NewExpiryWorker(ExpiryWorkerConfig{Interval: time.Hour, BatchSize: 2}, expirer, zap.NewNop())

	w.sweep(context.Background())

	assert.Equal(t, 1, expirer.callCount())
	assert.EqualError(t, w.LastError(), "database is locked")
}

func TestExpiryWorker_StartStop(t *testing.T) {
	expirer := &mockExpirer{}
	w := NewExpiryWorker(ExpiryWorkerConfig{Interval: 5 * time.Millisecond, BatchSize: 10}, expirer, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()), "second start is rejected")

	require.Eventually(t, func() bool { return expirer.callCount() >= 2 }, time.Second, time.Millisecond)
	require.NoError(t, w.Stop())

	calls := expirer.callCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, expirer.callCount(), "no sweeps after Stop returns")
	assert.NoError(t, w.Stop(), "stop is idempotent")
}

func TestExpiryWorker_Defaults(t *testing.T) {
	w := NewExpiryWorker(ExpiryWorkerConfig{}, &mockExpirer{}, zap.NewNop())
	assert.Equal(t, DefaultExpiryWorkerConfig(), w.config)
	assert.Equal(t, "ExpiryWorker", w.Name())
}

type stubWorker struct {
	name     string
	startErr error
	stopErr  error
	started  bool
	stopped  bool
}

func (s *stubWorker) Start(ctx context.Context) error {
	s.started = s.startErr == nil
	return s.startErr
}
func (s *stubWorker) Stop() error  { s.stopped = true; return s.stopErr }
func (s *stubWorker) Name() string { return s.name }

func TestWorkerManager_Lifecycle(t *testing.T) {
	m := NewWorkerManager(zap.NewNop())
	ok := &stubWorker{name: "ok"}
	broken := &stubWorker{name: "broken", startErr: errors.New("boom")}
	m.Register(ok)
	m.Register(broken)
	assert.Equal(t, 2, m.GetWorkerCount())
	assert.Equal(t, []string{"ok", "broken"}, m.Names())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.True(t, ok.started)
	assert.Error(t, m.StartAll(context.Background()))

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.True(t, ok.stopped)
	assert.NoError(t, m.StopAll())
}

func TestWorkerManager_StopErrors(t *testing.T) {
	m := NewWorkerManager(zap.NewNop())
	m.Register(&stubWorker{name: "a", stopErr: errors.New("stuck")})
	m.Register(&stubWorker{name: "b"})

	require.NoError(t, m.StartAll(context.Background()))
	err := m.StopAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: stuck")
}
