package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(t *testing.T) (*ZapLogger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return NewZapLogger(zap.New(core)), logs
}

func TestZapLogger_Levels(t *testing.T) {
	log, logs := newObserved(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	want := []struct {
		level zapcore.Level
		msg   string
		key   string
		val   int64
	}{
		{zapcore.DebugLevel, "dbg", "a", 1},
		{zapcore.InfoLevel, "inf", "b", 2},
		{zapcore.WarnLevel, "wrn", "c", 3},
		{zapcore.ErrorLevel, "err", "d", 4},
	}
	for i, w := range want {
		assert.Equal(t, w.level, entries[i].Level)
		assert.Equal(t, w.msg, entries[i].Message)
		assert.Equal(t, w.val, entries[i].ContextMap()[w.key])
	}
}

func TestZapLogger_WithAddsFields(t *testing.T) {
	log, logs := newObserved(t)

	child := log.With("component", "sync")
	child.Info(context.Background(), "hello")

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, "sync", entries[0].ContextMap()["component"])
}

func TestZapLogger_RequestIDFromContext(t *testing.T) {
	log, logs := newObserved(t)

	ctx := WithRequestID(context.Background(), "req-1")
	log.Info(ctx, "handled")

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])

	_, ok := RequestID(context.Background())
	assert.False(t, ok)
}

func TestNewNop(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop().Info(context.Background(), "discarded", "k", "v")
	})
}
