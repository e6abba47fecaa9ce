package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apigateway/internal/config"
)

func TestTiersFromConfig(t *testing.T) {
	t.Parallel()

	tiers := TiersFromConfig(config.DefaultConfig().RateLimit.Tiers)
	require.Len(t, tiers, 3)
	assert.Equal(t, Tier{Name: "short", Limit: 3, Window: time.Second}, tiers[0])
	assert.Equal(t, Tier{Name: "medium", Limit: 20, Window: 10 * time.Second}, tiers[1])
	assert.Equal(t, Tier{Name: "long", Limit: 100, Window: time.Minute}, tiers[2])

	assert.Empty(t, TiersFromConfig([]config.RateLimitTier{{Name: "empty"}}))
}

func TestTieredLimiter_ShortTier(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	l := NewTieredLimiter([]Tier{
		{Name: "short", Limit: 3, Window: time.Second},
		{Name: "medium", Limit: 20, Window: 10 * time.Second},
	}, WithTieredClock(clock.Now))
	defer l.Stop()

	for i := 0; i < 3; i++ {
		res := l.Allow("1.2.3.4")
		require.True(t, res.Allowed, "request %d", i)
	}

	res := l.Allow("1.2.3.4")
	assert.False(t, res.Allowed)
	assert.Equal(t, "short", res.Scope)
	assert.Equal(t, 3, res.Limit)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter, time.Second)

	assert.True(t, l.Allow("5.6.7.8").Allowed)

	clock.Advance(time.Second)
	res = l.Allow("1.2.3.4")
	require.True(t, res.Allowed)
	assert.Equal(t, "short", res.Scope)
	assert.Equal(t, 2, res.Remaining)
}

func TestTieredLimiter_RejectedRequestConsumesNothing(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	l := NewTieredLimiter([]Tier{
		{Name: "short", Limit: 1, Window: time.Second},
		{Name: "long", Limit: 3, Window: time.Minute},
	}, WithTieredClock(clock.Now))
	defer l.Stop()

	require.True(t, l.Allow("c").Allowed)

	res := l.Allow("c")
	require.False(t, res.Allowed)
	assert.Equal(t, "short", res.Scope)

	clock.Advance(time.Second)
	require.True(t, l.Allow("c").Allowed)

	clock.Advance(time.Second)
	require.True(t, l.Allow("c").Allowed)

	clock.Advance(time.Second)
	res = l.Allow("c")
	assert.False(t, res.Allowed)
	assert.Equal(t, "long", res.Scope)
}

func TestTieredLimiter_NoTiers(t *testing.T) {
	t.Parallel()

	l := NewTieredLimiter(nil)
	defer l.Stop()

	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("c").Allowed)
	}
	assert.Equal(t, 0, l.ClientCount())
}

func TestTieredLimiter_CleanupOldClients(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	l := NewTieredLimiter([]Tier{{Name: "short", Limit: 3, Window: time.Second}},
		WithTieredClock(clock.Now), WithClientTTL(time.Minute))
	defer l.Stop()

	l.Allow("old")
	clock.Advance(2 * time.Minute)
	l.Allow("new")
	require.Equal(t, 2, l.ClientCount())

	l.CleanupOldClients(time.Minute)
	assert.Equal(t, 1, l.ClientCount())

	l.Stop()
	l.Stop()
}
