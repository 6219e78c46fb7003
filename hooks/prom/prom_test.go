package prom

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/flightcache"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New(reg, "test")

	h.Hit("a")
	h.Hit("b")
	h.Miss("c")
	h.Coalesced("c")
	h.StaleServed("d", true)
	h.StaleServed("d", false)
	h.WriteSkipped("e", flightcache.SkipEmpty)
	h.PeerError("lock", "f", errors.New("down"))
	h.GenerationFailed("g", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(h.lookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.lookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.lookups.WithLabelValues("coalesced")))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.lookups.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.refreshes))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.writeSkipped.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.peerErrors.WithLabelValues("lock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.failures))

	n, err := testutil.GatherAndCount(reg, "test_flightcache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg, "dup")
	assert.Panics(t, func() { New(reg, "dup") })
}
