package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/flightcache"
)

func TestLoggerFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	l.Debug("miss", flightcache.Fields{"key": "user:1"})
	l.Error("write failed", flightcache.Fields{"key": "user:2", "err": errors.New("boom")})

	require.Len(t, hook.Entries, 2)

	first := hook.Entries[0]
	assert.Equal(t, logrus.DebugLevel, first.Level)
	assert.Equal(t, "flightcache", first.Data["component"])
	assert.Equal(t, "user:1", first.Data["key"])

	last := hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "write failed", last.Message)
	assert.EqualError(t, last.Data[logrus.ErrorKey].(error), "boom")
	assert.NotContains(t, last.Data, "err")
}
