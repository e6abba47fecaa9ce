package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/apigateway/internal/util"
)

// State represents the state of a circuit breaker.
type State int

const (
	// StateClosed indicates the circuit is closed and requests are allowed.
	StateClosed State = iota

	// StateOpen indicates the circuit is open and requests are rejected.
	StateOpen

	// StateHalfOpen indicates the circuit is probing whether the upstream recovered.
	// Every call is let through while half-open.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = util.ErrCircuitOpen

// Clock returns the current time.
type Clock func() time.Time

// CircuitBreaker tracks failures of one upstream service.
type CircuitBreaker struct {
	name    string
	config  *Config
	logger  *zap.Logger
	metrics *Metrics
	now     Clock

	mu           sync.Mutex
	state        State
	failureCount int
	lastFailure  time.Time
	nextAttempt  time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(name string, config *Config, logger *zap.Logger, opts ...BreakerOption) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}
	config.Validate()

	if logger == nil {
		logger = zap.NewNop()
	}

	cb := &CircuitBreaker{
		name:   name,
		config: config,
		logger: logger,
		now:    time.Now,
		state:  StateClosed,
	}

	for _, opt := range opts {
		opt(cb)
	}

	cb.metrics.recordState(name, StateClosed)

	return cb
}

// BreakerOption is a functional option for a single breaker.
type BreakerOption func(*CircuitBreaker)

// WithClock sets the clock used for timing decisions.
func WithClock(now Clock) BreakerOption {
	return func(cb *CircuitBreaker) {
		if now != nil {
			cb.now = now
		}
	}
}

// WithMetrics sets the metrics the breaker reports to.
func WithMetrics(m *Metrics) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.metrics = m
	}
}

// Execute runs fn unless the circuit is open. Any error returned by fn is
// recorded as a failure and returned unchanged, except errors wrapped by
// Exclude, which leave the record untouched.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}

	err := fn(ctx)

	switch {
	case err == nil:
		cb.RecordSuccess()
	case IsExcluded(err):
		// The call said nothing about upstream health.
	default:
		cb.RecordFailure()
	}

	return err
}

// excludedError marks an outcome the breaker must not count.
type excludedError struct {
	err error
}

func (e *excludedError) Error() string { return e.err.Error() }

func (e *excludedError) Unwrap() error { return e.err }

// Exclude wraps err so that Execute records neither a success nor a
// failure for it. A nil err stays nil.
func Exclude(err error) error {
	if err == nil {
		return nil
	}
	return &excludedError{err: err}
}

// IsExcluded reports whether err was wrapped by Exclude.
func IsExcluded(err error) bool {
	var ex *excludedError
	return errors.As(err, &ex)
}

// Allow reports whether a call may proceed. An open circuit whose reset
// timeout has elapsed moves to half-open and lets the call through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	allowed := true
	if cb.state == StateOpen {
		if cb.now().Before(cb.nextAttempt) {
			allowed = false
		} else {
			cb.transitionTo(StateHalfOpen)
		}
	}

	cb.metrics.recordRequest(cb.name, allowed)

	return allowed
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.metrics.recordResult(cb.name, true)

	switch cb.state {
	case StateHalfOpen:
		cb.failureCount = 0
		cb.transitionTo(StateClosed)
	case StateClosed:
		cb.failureCount = 0
	}
}

// RecordFailure records a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cb.metrics.recordResult(cb.name, false)

	if cb.state == StateClosed && !cb.lastFailure.IsZero() &&
		now.Sub(cb.lastFailure) > cb.config.MonitoringPeriod {
		cb.failureCount = 0
	}

	cb.failureCount++
	cb.lastFailure = now

	cb.logger.Warn("upstream failure recorded",
		zap.String("name", cb.name),
		zap.Int("failures", cb.failureCount),
		zap.Int("threshold", cb.config.FailureThreshold),
	)

	if cb.state == StateOpen || cb.failureCount < cb.config.FailureThreshold {
		return
	}

	cb.nextAttempt = now.Add(cb.config.ResetTimeout)
	cb.transitionTo(StateOpen)
}

// transitionTo must be called with mu held.
func (cb *CircuitBreaker) transitionTo(newState State) {
	oldState := cb.state
	if oldState == newState {
		return
	}
	cb.state = newState

	cb.metrics.recordStateChange(cb.name, oldState, newState)

	fields := []zap.Field{
		zap.String("name", cb.name),
		zap.String("from", oldState.String()),
		zap.String("to", newState.String()),
	}
	if newState == StateOpen {
		fields = append(fields, zap.Time("next_attempt", cb.nextAttempt))
		cb.logger.Error("circuit breaker state changed", fields...)
	} else {
		cb.logger.Info("circuit breaker state changed", fields...)
	}

	if cb.config.OnStateChange != nil {
		go cb.config.OnStateChange(cb.name, oldState, newState)
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the circuit closed and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.transitionTo(StateClosed)
	cb.failureCount = 0
	cb.lastFailure = time.Time{}
	cb.nextAttempt = time.Time{}

	cb.logger.Info("circuit breaker reset",
		zap.String("name", cb.name),
	)
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Status returns a snapshot of the breaker record.
func (cb *CircuitBreaker) Status() Status {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Status{
		Name:         cb.name,
		State:        cb.state,
		FailureCount: cb.failureCount,
		LastFailure:  cb.lastFailure,
		NextAttempt:  cb.nextAttempt,
	}
}

// Status is a point-in-time copy of a breaker record.
type Status struct {
	Name         string
	State        State
	FailureCount int
	LastFailure  time.Time
	NextAttempt  time.Time
}
