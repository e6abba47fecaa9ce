package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/apigateway/internal/util"
)

var errUpstream = errors.New("connection refused")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(clock *fakeClock) *CircuitBreaker {
	return NewCircuitBreaker("challenge-service", DefaultConfig(), zap.NewNop(), WithClock(clock.Now))
}

func failN(t *testing.T, cb *CircuitBreaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := cb.Execute(context.Background(), func(context.Context) error { return errUpstream })
		require.ErrorIs(t, err, errUpstream)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "CLOSED"},
		{StateOpen, "OPEN"},
		{StateHalfOpen, "HALF_OPEN"},
		{State(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cb := newTestBreaker(clock)

	failN(t, cb, 4)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 4, cb.Status().FailureCount)

	failN(t, cb, 1)
	status := cb.Status()
	assert.Equal(t, StateOpen, status.State)
	assert.Equal(t, 5, status.FailureCount)
	assert.Equal(t, clock.Now().Add(60*time.Second), status.NextAttempt)
	assert.Equal(t, clock.Now(), status.LastFailure)
}

func TestCircuitBreaker_OpenRejectsWithoutCalling(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cb := newTestBreaker(clock)
	failN(t, cb, 5)

	clock.Advance(10 * time.Millisecond)

	var called atomic.Bool
	err := cb.Execute(context.Background(), func(context.Context) error {
		called.Store(true)
		return nil
	})

	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, util.ErrCircuitOpen)
	assert.False(t, called.Load())
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenSuccessCloses(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cb := newTestBreaker(clock)
	failN(t, cb, 5)

	clock.Advance(59 * time.Second)
	assert.False(t, cb.Allow())

	clock.Advance(time.Second)

	var observed State
	err := cb.Execute(context.Background(), func(context.Context) error {
		observed = cb.State()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, StateHalfOpen, observed)

	status := cb.Status()
	assert.Equal(t, StateClosed, status.State)
	assert.Equal(t, 0, status.FailureCount)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cb := newTestBreaker(clock)
	failN(t, cb, 5)

	clock.Advance(61 * time.Second)
	failN(t, cb, 1)

	status := cb.Status()
	assert.Equal(t, StateOpen, status.State)
	assert.Equal(t, 6, status.FailureCount)
	assert.Equal(t, clock.Now().Add(60*time.Second), status.NextAttempt)
}

func TestCircuitBreaker_HalfOpenAllowsConcurrentProbes(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cb := newTestBreaker(clock)
	failN(t, cb, 5)
	clock.Advance(time.Minute)

	require.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.True(t, cb.Allow())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsConsecutiveCount(t *testing.T) {
	t.Parallel()

	cb := newTestBreaker(newFakeClock())

	failN(t, cb, 4)
	require.NoError(t, cb.Execute(context.Background(), func(context.Context) error { return nil }))
	failN(t, cb, 4)

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 4, cb.Status().FailureCount)
}

func TestCircuitBreaker_MonitoringPeriodExpiresFailures(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cb := newTestBreaker(clock)

	failN(t, cb, 4)
	clock.Advance(301 * time.Second)
	failN(t, cb, 1)

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Status().FailureCount)
}

func TestCircuitBreaker_PropagatesResult(t *testing.T) {
	t.Parallel()

	cb := newTestBreaker(newFakeClock())

	var result string
	err := cb.Execute(context.Background(), func(context.Context) error {
		result = "payload"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "payload", result)

	wrapped := util.NewUpstreamUnreachableError(errUpstream)
	err = cb.Execute(context.Background(), func(context.Context) error { return wrapped })
	assert.Same(t, wrapped, err)
}

func TestCircuitBreaker_ExcludedErrorsAreNotCounted(t *testing.T) {
	t.Parallel()

	cb := newTestBreaker(newFakeClock())
	failN(t, cb, 2)

	for i := 0; i < DefaultConfig().FailureThreshold*2; i++ {
		err := cb.Execute(context.Background(), func(context.Context) error {
			return Exclude(context.Canceled)
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.True(t, IsExcluded(err))
	}

	status := cb.Status()
	assert.Equal(t, StateClosed, status.State)
	assert.Equal(t, 2, status.FailureCount)
}

func TestExclude(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Exclude(nil))
	assert.False(t, IsExcluded(errUpstream))
	assert.False(t, IsExcluded(nil))

	err := fmt.Errorf("forward: %w", Exclude(errUpstream))
	assert.True(t, IsExcluded(err))
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, "forward: connection refused", err.Error())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()

	cb := newTestBreaker(newFakeClock())
	failN(t, cb, 5)
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()

	status := cb.Status()
	assert.Equal(t, StateClosed, status.State)
	assert.Equal(t, 0, status.FailureCount)
	assert.True(t, status.LastFailure.IsZero())
	assert.True(t, status.NextAttempt.IsZero())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	t.Parallel()

	changes := make(chan [2]State, 4)
	cfg := DefaultConfig().
		WithFailureThreshold(1).
		WithOnStateChange(func(_ string, from, to State) {
			changes <- [2]State{from, to}
		})

	cb := NewCircuitBreaker("svc", cfg, zap.NewNop())
	cb.RecordFailure()

	select {
	case change := <-changes:
		assert.Equal(t, [2]State{StateClosed, StateOpen}, change)
	case <-time.After(time.Second):
		t.Fatal("state change callback not invoked")
	}
}

func TestCircuitBreaker_LogsStateChange(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	cfg := DefaultConfig().WithFailureThreshold(2)
	cb := NewCircuitBreaker("svc", cfg, zap.New(core))

	cb.RecordFailure()
	cb.RecordFailure()

	entries := logs.FilterMessage("circuit breaker state changed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "OPEN", entries[0].ContextMap()["to"])
	assert.Len(t, logs.FilterMessage("upstream failure recorded").All(), 2)
}

func TestCircuitBreaker_ConcurrentFailuresAreCounted(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig().WithFailureThreshold(1000)
	cb := NewCircuitBreaker("svc", cfg, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Execute(context.Background(), func(context.Context) error { return errUpstream })
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, cb.Status().FailureCount)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.Validate()

	assert.Equal(t, 5, cfg.FailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.ResetTimeout)
	assert.Equal(t, 300*time.Second, cfg.MonitoringPeriod)
}
