package zap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/flightcache"
)

func TestLoggerLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("d", flightcache.Fields{"key": "user:1"})
	l.Warn("w", flightcache.Fields{"err": errors.New("boom"), "b": 2})
	l.Error("e", nil)

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "flightcache", entries[0].LoggerName)
	assert.Equal(t, "user:1", entries[0].ContextMap()["key"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["err"])
	assert.Equal(t, "b", entries[1].Context[0].Key)

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Empty(t, entries[2].Context)
}

func TestNewNil(t *testing.T) {
	assert.NotPanics(t, func() { New(nil).Info("x", flightcache.Fields{"a": 1}) })
}
