// Package sloghooks logs flightcache.Hooks events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/flightcache"
)

type Options struct {
	// Sampling to avoid floods on hot keys; 0/1 = log all.
	HitEvery   uint64
	StaleEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr   atomic.Uint64
	staleCtr atomic.Uint64
}

var _ flightcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("flightcache.hit", "key", h.redact(key))
}

func (h *Hooks) StaleServed(key string, refreshing bool) {
	if h.l == nil || !sample(h.opts.StaleEvery, &h.staleCtr) {
		return
	}
	h.l.Debug("flightcache.stale_served",
		"key", h.redact(key),
		"refreshing", refreshing)
}

func (h *Hooks) Miss(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("flightcache.miss", "key", h.redact(key))
}

func (h *Hooks) Coalesced(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("flightcache.coalesced", "key", h.redact(key))
}

func (h *Hooks) RemoteContended(key string) {
	if h.l == nil {
		return
	}
	h.l.Info("flightcache.remote_contended", "key", h.redact(key))
}

func (h *Hooks) GenerationFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("flightcache.generation_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) WriteSkipped(key, reason string) {
	if h.l == nil {
		return
	}
	h.l.Debug("flightcache.write_skipped",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) StoreRejected(key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("flightcache.store_rejected", "key", h.redact(key))
}

func (h *Hooks) AsyncWriteFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("flightcache.async_write_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) PeerError(op, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("flightcache.peer_error",
		"op", op,
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) CorruptEntry(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("flightcache.corrupt_entry",
		"key", h.redact(key),
		"err", err)
}
