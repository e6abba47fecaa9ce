package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o600))

	initial, err := LoadConfig(path)
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		previous *GatewayConfig
		current  *GatewayConfig
	)
	w, err := NewWatcher(path, func(prev, cur *GatewayConfig) {
		mu.Lock()
		defer mu.Unlock()
		previous, current = prev, cur
	}, WithDebounceDelay(10*time.Millisecond), WithInitialConfig(initial))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return current != nil && current.Logging.Level == "debug"
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Same(t, initial, previous)
	mu.Unlock()
	assert.Equal(t, "debug", w.LastConfig().Logging.Level)
}

func TestWatcher_InvalidConfigCallsErrorCallback(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9600\n"), 0o600))

	errCh := make(chan error, 1)
	w, err := NewWatcher(path, func(_, _ *GatewayConfig) {
		t.Error("callback must not run for an invalid config")
	},
		WithDebounceDelay(10*time.Millisecond),
		WithErrorCallback(func(err error) {
			select {
			case errCh <- err:
			default:
			}
		}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o600))

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected error callback")
	}
	assert.Nil(t, w.LastConfig())
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o600))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
}

func TestRequiresRestart(t *testing.T) {
	t.Parallel()

	a := DefaultConfig()
	b := DefaultConfig()
	assert.False(t, RequiresRestart(a, b))

	b.Logging.Level = "debug"
	assert.False(t, RequiresRestart(a, b))

	b.Services[0].URL = "http://elsewhere:3000"
	assert.True(t, RequiresRestart(a, b))

	assert.True(t, RequiresRestart(nil, b))
}
