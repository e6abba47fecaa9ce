package circuitbreaker

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Manager owns one circuit breaker per service key. Breakers are created
// on first use and never removed.
type Manager struct {
	breakers sync.Map
	config   *Config
	logger   *zap.Logger
	opts     []BreakerOption
}

// NewManager creates a new circuit breaker manager. The options are applied
// to every breaker the manager creates.
func NewManager(config *Config, logger *zap.Logger, opts ...BreakerOption) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	config.Validate()

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		config: config,
		logger: logger,
		opts:   opts,
	}
}

// Get returns the breaker for a service, or nil if none was created yet.
func (m *Manager) Get(name string) *CircuitBreaker {
	value, ok := m.breakers.Load(name)
	if !ok {
		return nil
	}
	return value.(*CircuitBreaker)
}

// GetOrCreate returns the breaker for a service, creating it if needed.
func (m *Manager) GetOrCreate(name string) *CircuitBreaker {
	if value, ok := m.breakers.Load(name); ok {
		return value.(*CircuitBreaker)
	}

	cb := NewCircuitBreaker(name, m.config, m.logger, m.opts...)

	actual, loaded := m.breakers.LoadOrStore(name, cb)
	if loaded {
		return actual.(*CircuitBreaker)
	}

	m.logger.Debug("created circuit breaker",
		zap.String("name", name),
	)

	return cb
}

// Execute runs fn through the breaker of the named service.
func (m *Manager) Execute(ctx context.Context, name string, fn func(context.Context) error) error {
	return m.GetOrCreate(name).Execute(ctx, fn)
}

// Status returns the record of a service. The second result is false if no
// call was ever made to it.
func (m *Manager) Status(name string) (Status, bool) {
	cb := m.Get(name)
	if cb == nil {
		return Status{}, false
	}
	return cb.Status(), true
}

// Statuses returns the records of all services, sorted by name.
func (m *Manager) Statuses() []Status {
	var statuses []Status
	m.breakers.Range(func(_, value interface{}) bool {
		statuses = append(statuses, value.(*CircuitBreaker).Status())
		return true
	})
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})
	return statuses
}

// Reset forces the breaker of a service closed. A service without a
// breaker gets a fresh closed one.
func (m *Manager) Reset(name string) {
	m.GetOrCreate(name).Reset()
}

// ResetAll resets every breaker.
func (m *Manager) ResetAll() {
	m.breakers.Range(func(_, value interface{}) bool {
		value.(*CircuitBreaker).Reset()
		return true
	})
	m.logger.Info("reset all circuit breakers")
}

// Count returns the number of breakers.
func (m *Manager) Count() int {
	count := 0
	m.breakers.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}
