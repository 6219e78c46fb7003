package sloghooks

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestHitSamplingAndRedaction(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := New(l, Options{HitEvery: 3})

	for i := 0; i < 6; i++ {
		h.Hit("user:42")
	}
	recs := records(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "flightcache.hit", recs[0]["msg"])
	assert.Len(t, recs[0]["key"], 16)
	assert.NotContains(t, buf.String(), "user:42")
}

func TestCustomRedactAndErrors(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))
	h := New(l, Options{Redact: func(k string) string { return "k=" + k }})

	h.PeerError("lock", "user:1", errors.New("conn refused"))
	h.AsyncWriteFailed("user:2", errors.New("disk full"))

	recs := records(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "flightcache.peer_error", recs[0]["msg"])
	assert.Equal(t, "lock", recs[0]["op"])
	assert.Equal(t, "k=user:1", recs[0]["key"])
	assert.Equal(t, "conn refused", recs[0]["err"])
	assert.Equal(t, "ERROR", recs[1]["level"])
}

func TestNilLogger(t *testing.T) {
	h := New(nil, Options{})
	assert.NotPanics(t, func() {
		h.Hit("a")
		h.Miss("a")
		h.CorruptEntry("a", errors.New("x"))
	})
}
