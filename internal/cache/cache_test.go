package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apigateway/internal/config"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       *config.CacheConfig
		redis     config.RedisConfig
		expectErr bool
		disabled  bool
	}{
		{name: "nil config", cfg: nil, expectErr: true},
		{name: "disabled", cfg: &config.CacheConfig{Enabled: false}, disabled: true},
		{name: "memory", cfg: &config.CacheConfig{Enabled: true, Type: config.CacheTypeMemory}},
		{name: "empty type defaults to memory", cfg: &config.CacheConfig{Enabled: true}},
		{name: "redis without host", cfg: &config.CacheConfig{Enabled: true, Type: config.CacheTypeRedis}, expectErr: true},
		{name: "unknown type", cfg: &config.CacheConfig{Enabled: true, Type: "memcached"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := New(tt.cfg, tt.redis, nil)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer c.Close()

			if tt.disabled {
				_, err := c.Get(context.Background(), "k")
				assert.ErrorIs(t, err, ErrCacheDisabled)
				assert.ErrorIs(t, c.Set(context.Background(), "k", nil, time.Second), ErrCacheDisabled)
				assert.ErrorIs(t, c.Delete(context.Background(), "k"), ErrCacheDisabled)
			}
		})
	}
}

func TestStats_HitRate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Stats{}.HitRate())
	assert.InDelta(t, 75.0, Stats{Hits: 3, Misses: 1}.HitRate(), 0.001)
}
