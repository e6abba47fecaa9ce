package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/apigateway/internal/config"
	"github.com/vyrodovalexey/apigateway/internal/observability"
)

// Rate limiter default configuration constants.
const (
	// DefaultClientTTL is how long an idle client's limiters are kept.
	DefaultClientTTL = 10 * time.Minute

	// MinCleanupInterval is the minimum interval for cleanup operations.
	MinCleanupInterval = 10 * time.Second

	// MaxCleanupInterval is the maximum interval for cleanup operations.
	MaxCleanupInterval = time.Minute
)

// Tier allows Limit requests per Window for each client.
type Tier struct {
	Name   string
	Limit  int
	Window time.Duration
}

// TiersFromConfig converts configured tiers, skipping empty ones.
func TiersFromConfig(cfg []config.RateLimitTier) []Tier {
	tiers := make([]Tier, 0, len(cfg))
	for _, t := range cfg {
		if t.Limit <= 0 || t.Window <= 0 {
			continue
		}
		tiers = append(tiers, Tier{Name: t.Name, Limit: t.Limit, Window: t.Window.Duration()})
	}
	return tiers
}

// clientEntry holds a client's limiters, one per tier.
type clientEntry struct {
	limiters   []*rate.Limiter
	lastAccess time.Time
}

// TieredLimiter throttles each client against several token buckets at
// once. A request must fit every tier, and a rejected request consumes
// from none of them.
type TieredLimiter struct {
	tiers     []Tier
	clients   map[string]*clientEntry
	mu        sync.Mutex
	now       func() time.Time
	logger    observability.Logger
	clientTTL time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// TieredOption is a functional option for the tiered limiter.
type TieredOption func(*TieredLimiter)

// WithTieredLogger sets the logger.
func WithTieredLogger(logger observability.Logger) TieredOption {
	return func(l *TieredLimiter) {
		l.logger = logger
	}
}

// WithTieredClock sets the clock.
func WithTieredClock(now func() time.Time) TieredOption {
	return func(l *TieredLimiter) {
		l.now = now
	}
}

// WithClientTTL sets how long idle clients are remembered.
func WithClientTTL(ttl time.Duration) TieredOption {
	return func(l *TieredLimiter) {
		l.clientTTL = ttl
	}
}

// NewTieredLimiter creates a tiered limiter. Call Stop to end its cleanup
// goroutine.
func NewTieredLimiter(tiers []Tier, opts ...TieredOption) *TieredLimiter {
	l := &TieredLimiter{
		tiers:     tiers,
		clients:   make(map[string]*clientEntry),
		now:       time.Now,
		logger:    observability.NopLogger(),
		clientTTL: DefaultClientTTL,
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.cleanupLoop()

	return l
}

// Tiers returns the configured tiers.
func (l *TieredLimiter) Tiers() []Tier {
	return l.tiers
}

func (l *TieredLimiter) newLimiters() []*rate.Limiter {
	limiters := make([]*rate.Limiter, len(l.tiers))
	for i, t := range l.tiers {
		limiters[i] = rate.NewLimiter(rate.Every(t.Window/time.Duration(t.Limit)), t.Limit)
	}
	return limiters
}

// Allow checks the client against every tier.
func (l *TieredLimiter) Allow(client string) *Result {
	if len(l.tiers) == 0 {
		return allowed()
	}

	now := l.now()

	l.mu.Lock()
	entry, ok := l.clients[client]
	if !ok {
		entry = &clientEntry{limiters: l.newLimiters()}
		l.clients[client] = entry
	}
	entry.lastAccess = now
	limiters := entry.limiters
	l.mu.Unlock()

	reservations := make([]*rate.Reservation, len(limiters))
	var denied *Result
	for i, lim := range limiters {
		r := lim.ReserveN(now, 1)
		reservations[i] = r
		delay := r.DelayFrom(now)
		if delay > 0 && (denied == nil || delay > denied.RetryAfter) {
			denied = &Result{
				Limit:      l.tiers[i].Limit,
				RetryAfter: delay,
				ResetAfter: delay,
				Scope:      l.tiers[i].Name,
			}
		}
	}

	if denied != nil {
		for _, r := range reservations {
			r.CancelAt(now)
		}
		return denied
	}

	result := &Result{Allowed: true, Remaining: -1}
	for i, lim := range limiters {
		remaining := max(int(lim.TokensAt(now)), 0)
		if result.Remaining < 0 || remaining < result.Remaining {
			result.Remaining = remaining
			result.Limit = l.tiers[i].Limit
			result.Scope = l.tiers[i].Name
		}
	}
	return result
}

// CleanupOldClients removes clients idle for longer than maxAge.
func (l *TieredLimiter) CleanupOldClients(maxAge time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for client, entry := range l.clients {
		if now.Sub(entry.lastAccess) > maxAge {
			delete(l.clients, client)
			removed++
		}
	}

	if removed > 0 {
		l.logger.Debug("cleaned up expired rate limiter entries",
			observability.Int("removed", removed),
			observability.Int("remaining", len(l.clients)),
		)
	}
}

// ClientCount returns the number of tracked clients.
func (l *TieredLimiter) ClientCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *TieredLimiter) cleanupLoop() {
	interval := min(max(l.clientTTL/2, MinCleanupInterval), MaxCleanupInterval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.CleanupOldClients(l.clientTTL)
		case <-l.stopCh:
			return
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *TieredLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}
