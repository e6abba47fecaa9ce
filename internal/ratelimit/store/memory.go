package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// maxCASRetries bounds the compare-and-swap loop under contention.
const maxCASRetries = 100

// DefaultCleanupInterval is how often expired counters are swept.
const DefaultCleanupInterval = time.Minute

type entry struct {
	value      int64
	expiration time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiration.IsZero() && !now.Before(e.expiration)
}

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	data      sync.Map
	now       func() time.Time
	done      chan struct{}
	closeOnce sync.Once
}

// MemoryOption is a functional option for the memory store.
type MemoryOption func(*MemoryStore)

// WithClock sets the clock used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an in-memory store that sweeps expired counters
// every interval. A non-positive interval uses DefaultCleanupInterval.
func NewMemoryStore(interval time.Duration, opts ...MemoryOption) *MemoryStore {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}

	s := &MemoryStore{
		now:  time.Now,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop(interval)

	return s
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	value, ok := s.data.Load(key)
	if !ok {
		return 0, &ErrKeyNotFound{Key: key}
	}

	e := value.(*entry)
	if e.expired(s.now()) {
		s.data.CompareAndDelete(key, e)
		return 0, &ErrKeyNotFound{Key: key}
	}

	return e.value, nil
}

// IncrementWithExpiry implements Store.
func (s *MemoryStore) IncrementWithExpiry(
	ctx context.Context,
	key string,
	delta int64,
	expiration time.Duration,
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := s.now()
	var exp time.Time
	if expiration > 0 {
		exp = now.Add(expiration)
	}

	for retries := 0; retries < maxCASRetries; retries++ {
		value, ok := s.data.Load(key)
		if !ok {
			fresh := &entry{value: delta, expiration: exp}
			actual, loaded := s.data.LoadOrStore(key, fresh)
			if !loaded {
				return delta, nil
			}
			value = actual
		}

		e := value.(*entry)

		if e.expired(now) {
			if s.data.CompareAndSwap(key, e, &entry{value: delta, expiration: exp}) {
				return delta, nil
			}
			continue
		}

		next := &entry{value: e.value + delta, expiration: e.expiration}
		if s.data.CompareAndSwap(key, e, next) {
			return next.value, nil
		}
	}

	return 0, fmt.Errorf("increment with expiry failed: max retries (%d) exceeded", maxCASRetries)
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data.Delete(key)
	return nil
}

// Close stops the cleanup loop. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}

// Size returns the number of stored counters, including expired ones not
// yet swept.
func (s *MemoryStore) Size() int {
	count := 0
	s.data.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) cleanupExpired() {
	now := s.now()
	s.data.Range(func(key, value any) bool {
		if e := value.(*entry); e.expired(now) {
			s.data.CompareAndDelete(key, e)
		}
		return true
	})
}
