// Package asynchook moves flightcache.Hooks callbacks off the call path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{HitEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	c, _ := flightcache.New(flightcache.Options{Hooks: hooks})
//
// Events are dropped when the queue is full; Dropped reports how many.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/flightcache"
)

type Hooks struct {
	inner   flightcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ flightcache.Hooks = (*Hooks)(nil)

func New(inner flightcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.closed.Store(true)
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	defer func() {
		// send on a queue closed concurrently with this call
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	if h.closed.Load() {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) Hit(k string)                    { h.try(func() { h.inner.Hit(k) }) }
func (h *Hooks) Miss(k string)                   { h.try(func() { h.inner.Miss(k) }) }
func (h *Hooks) Coalesced(k string)              { h.try(func() { h.inner.Coalesced(k) }) }
func (h *Hooks) RemoteContended(k string)        { h.try(func() { h.inner.RemoteContended(k) }) }
func (h *Hooks) StoreRejected(k string)          { h.try(func() { h.inner.StoreRejected(k) }) }
func (h *Hooks) WriteSkipped(k, r string)        { h.try(func() { h.inner.WriteSkipped(k, r) }) }
func (h *Hooks) StaleServed(k string, r bool)    { h.try(func() { h.inner.StaleServed(k, r) }) }
func (h *Hooks) CorruptEntry(k string, e error)  { h.try(func() { h.inner.CorruptEntry(k, e) }) }
func (h *Hooks) PeerError(op, k string, e error) { h.try(func() { h.inner.PeerError(op, k, e) }) }
func (h *Hooks) GenerationFailed(k string, err error) {
	h.try(func() { h.inner.GenerationFailed(k, err) })
}
func (h *Hooks) AsyncWriteFailed(k string, err error) {
	h.try(func() { h.inner.AsyncWriteFailed(k, err) })
}
