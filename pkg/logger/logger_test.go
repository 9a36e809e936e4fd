package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := newLogger(Config{Level: "loud"})
	require.Error(t, err)
}

func TestNewLoggerDefaultsEncoding(t *testing.T) {
	l, err := newLogger(Config{Level: "debug", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := ContextWithRun(context.Background(), "run-1", "csv")
	FromContext(ctx, base).Info("read")
	FromContext(context.Background(), base).Info("bare")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{"run_id": "run-1", "source": "csv"}, entries[0].ContextMap())
	assert.Empty(t, entries[1].ContextMap())
	assert.NotNil(t, FromContext(ctx, nil))
}

func TestGetFallsBackToDefault(t *testing.T) {
	l := Get()
	require.NotNil(t, l)
	l.Debug("noop", zap.String("k", "v"))
}
