package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerCarriesServiceAndAction(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	lg := NewWithZap("kitchen", zap.New(core))

	lg.Info("order_ready", map[string]any{"order_id": "o-1"})
	lg.Error("transition_failed", errors.New("boom"), nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "kitchen", first["service"])
	assert.Equal(t, "order_ready", first["action"])
	assert.Equal(t, "o-1", first["order_id"])

	second := entries[1]
	assert.Equal(t, zapcore.ErrorLevel, second.Level)
	assert.Equal(t, "boom", second.ContextMap()["error"])
}

func TestWithAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	lg := NewWithZap("realtime", zap.New(core)).With(map[string]any{"venue_id": "v1"})

	lg.Info("channel_open", nil)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "v1", logs.All()[0].ContextMap()["venue_id"])
}

func TestLevelParsing(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, level("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, level("warn"))
	assert.Equal(t, zapcore.InfoLevel, level(""))
}
