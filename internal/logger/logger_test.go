package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	t.Run("returns the logger stored on the context", func(t *testing.T) {
		l := zap.NewNop().Sugar()
		ctx := WithLogger(context.Background(), l)
		require.Same(t, l, FromContext(ctx))
	})
	t.Run("falls back to the global logger", func(t *testing.T) {
		require.NotNil(t, FromContext(context.Background()))
	})
}

func TestWithUser(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core).Sugar())

	FromContext(WithUser(ctx, "trader-1")).Info("backfilled")
	FromContext(ctx).Info("untagged")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "trader-1", entries[0].ContextMap()["userID"])
	require.NotContains(t, entries[1].ContextMap(), "userID")
}

func TestNew_levelOverride(t *testing.T) {
	t.Setenv("TRADEJOURNAL_LOG_LEVEL", "error")
	l := New()
	require.False(t, l.Desugar().Core().Enabled(zapcore.WarnLevel))
	require.True(t, l.Desugar().Core().Enabled(zapcore.ErrorLevel))
}
