package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  LogConfig
		wantErr bool
	}{
		{name: "json info", config: LogConfig{Level: "info", Format: "json"}},
		{name: "console debug", config: LogConfig{Level: "debug", Format: "console"}},
		{name: "stderr warn", config: LogConfig{Level: "warn", Format: "json", Output: "stderr"}},
		{name: "invalid level", config: LogConfig{Level: "verbose"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestSetLevel(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(LogConfig{Level: "info"})
	require.NoError(t, err)

	zl := Zap(logger)
	assert.False(t, zl.Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, SetLevel(logger, "debug"))
	assert.True(t, zl.Core().Enabled(zapcore.DebugLevel))

	child := logger.With(String("component", "test"))
	require.NoError(t, SetLevel(logger, "error"))
	assert.False(t, Zap(child).Core().Enabled(zapcore.WarnLevel))

	assert.Error(t, SetLevel(logger, "nope"))
}

func TestWithContext_AddsRequestAndTraceIDs(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromZap(zap.New(core))

	ctx := ContextWithRequestID(context.Background(), "req-42")
	ctx = ContextWithTraceID(ctx, "trace-1")
	ctx = ContextWithSpanID(ctx, "span-1")

	logger.WithContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "trace-1", fields["trace_id"])
	assert.Equal(t, "span-1", fields["span_id"])
}

func TestWithContext_EmptyContextReturnsSameLogger(t *testing.T) {
	t.Parallel()

	logger := NopLogger()
	assert.Same(t, logger, logger.WithContext(context.Background()))
}

func TestGlobalLogger(t *testing.T) {
	logger := NopLogger()
	SetGlobalLogger(logger)
	t.Cleanup(func() { SetGlobalLogger(nil) })

	assert.Same(t, logger, GetGlobalLogger())
}
