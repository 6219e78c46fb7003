// Package prom counts flightcache.Hooks events with Prometheus counters.
//
// Keys are never used as label values.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/flightcache"
)

type Hooks struct {
	lookups         *prometheus.CounterVec // status: hit | stale | miss | coalesced
	refreshes       prometheus.Counter
	remoteContended prometheus.Counter
	failures        prometheus.Counter
	writeSkipped    *prometheus.CounterVec // reason: empty | non_positive_ttl
	storeRejected   prometheus.Counter
	asyncWriteFails prometheus.Counter
	peerErrors      *prometheus.CounterVec // op: lock | unlock | emit
	corrupt         prometheus.Counter
}

var _ flightcache.Hooks = (*Hooks)(nil)

// New registers the counters on reg (prometheus.DefaultRegisterer when nil) under
// the given namespace, e.g. "app" => app_flightcache_lookups_total.
func New(reg prometheus.Registerer, namespace string) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: namespace, Subsystem: "flightcache", Name: name, Help: help}
	}
	return &Hooks{
		lookups: f.NewCounterVec(opts("lookups_total",
			"Cache lookups by outcome."), []string{"status"}),
		refreshes: f.NewCounter(opts("stale_refreshes_total",
			"Background refreshes started by stale hits.")),
		remoteContended: f.NewCounter(opts("remote_contended_total",
			"Generations left to a peer process holding the lock.")),
		failures: f.NewCounter(opts("generation_failures_total",
			"Generations that ended in an error or panic.")),
		writeSkipped: f.NewCounterVec(opts("write_skipped_total",
			"Results not written to the store."), []string{"reason"}),
		storeRejected: f.NewCounter(opts("store_rejected_total",
			"Writes refused by the store.")),
		asyncWriteFails: f.NewCounter(opts("async_write_failures_total",
			"Background store writes that failed.")),
		peerErrors: f.NewCounterVec(opts("peer_errors_total",
			"Failed peer coordinator calls."), []string{"op"}),
		corrupt: f.NewCounter(opts("corrupt_entries_total",
			"Stored entries dropped because they could not be decoded.")),
	}
}

func (h *Hooks) Hit(string)       { h.lookups.WithLabelValues("hit").Inc() }
func (h *Hooks) Miss(string)      { h.lookups.WithLabelValues("miss").Inc() }
func (h *Hooks) Coalesced(string) { h.lookups.WithLabelValues("coalesced").Inc() }

func (h *Hooks) StaleServed(_ string, refreshing bool) {
	h.lookups.WithLabelValues("stale").Inc()
	if refreshing {
		h.refreshes.Inc()
	}
}

func (h *Hooks) RemoteContended(string)          { h.remoteContended.Inc() }
func (h *Hooks) GenerationFailed(string, error)  { h.failures.Inc() }
func (h *Hooks) WriteSkipped(_, reason string)   { h.writeSkipped.WithLabelValues(reason).Inc() }
func (h *Hooks) StoreRejected(string)            { h.storeRejected.Inc() }
func (h *Hooks) AsyncWriteFailed(string, error)  { h.asyncWriteFails.Inc() }
func (h *Hooks) PeerError(op, _ string, _ error) { h.peerErrors.WithLabelValues(op).Inc() }
func (h *Hooks) CorruptEntry(string, error)      { h.corrupt.Inc() }
