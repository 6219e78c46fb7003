package flightcache

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/flightcache/peer"
	"github.com/unkn0wn-root/flightcache/store"
)

// Coordinator owns the store, the peer coordinator and the in-flight generations
// shared by every function wrapped with it. Its settings may change at any time;
// each call reads them once on entry.
type Coordinator struct {
	log        Logger
	hooks      Hooks
	now        func() time.Time
	remoteWait time.Duration

	enabled      atomic.Bool
	defaultTTL   atomic.Int64
	saveEmpty    atomic.Bool
	waitForWrite atomic.Bool
	staleWindow  atomic.Int64

	store atomic.Pointer[storeHolder]
	peer  atomic.Pointer[peerHolder]

	flights *registry
}

type storeHolder struct{ s store.Store }

type peerHolder struct{ p peer.Coordinator }

func (c *Coordinator) Enabled() bool { return c.enabled.Load() }

// Enable toggles caching. While disabled every call runs the wrapped function and
// the store is never touched.
func (c *Coordinator) Enable(on bool) { c.enabled.Store(on) }

func (c *Coordinator) DefaultTTL() time.Duration { return time.Duration(c.defaultTTL.Load()) }

// SetDefaultTTL changes the TTL used by calls that set neither TTL nor TTLFunc.
// A value <= 0 stops those results from being written.
func (c *Coordinator) SetDefaultTTL(d time.Duration) { c.defaultTTL.Store(int64(d)) }

func (c *Coordinator) SaveEmptyValues() bool      { return c.saveEmpty.Load() }
func (c *Coordinator) SetSaveEmptyValues(on bool) { c.saveEmpty.Store(on) }
func (c *Coordinator) WaitForWrite() bool         { return c.waitForWrite.Load() }
func (c *Coordinator) SetWaitForWrite(on bool)    { c.waitForWrite.Store(on) }
func (c *Coordinator) StaleWindow() time.Duration { return time.Duration(c.staleWindow.Load()) }

// SetStaleWindow sets how long expired entries keep being served while a refresh
// runs. Negative values are treated as 0.
func (c *Coordinator) SetStaleWindow(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.staleWindow.Store(int64(d))
}

func (c *Coordinator) Store() store.Store {
	if h := c.store.Load(); h != nil {
		return h.s
	}
	return nil
}

// SetStore swaps the backing store. The previous store is not closed.
func (c *Coordinator) SetStore(s store.Store) {
	if s == nil {
		return
	}
	c.store.Store(&storeHolder{s: s})
}

func (c *Coordinator) Peer() peer.Coordinator {
	if h := c.peer.Load(); h != nil {
		return h.p
	}
	return nil
}

// SetPeer installs a peer coordinator (nil => peer.Local) and subscribes to its
// events. Events still arriving from a replaced peer are ignored; the previous peer
// is not closed.
func (c *Coordinator) SetPeer(p peer.Coordinator) {
	if p == nil {
		p = peer.Local{}
	}
	h := &peerHolder{p: p}
	c.peer.Store(h)
	p.OnEvent(func(key string, value []byte) {
		if c.peer.Load() != h {
			return
		}
		c.deliver(key, value)
	})
}

// InFlight reports how many generations are currently running.
func (c *Coordinator) InFlight() int { return c.flights.len() }

// Invalidate deletes the entry stored for key under scope.
func (c *Coordinator) Invalidate(ctx context.Context, scope, key string) error {
	if strings.TrimSpace(key) == "" {
		return &KeyError{Scope: scope, Key: key}
	}
	full := cacheKey(scope, key)
	if err := c.Store().Del(ctx, full); err != nil {
		return &StoreError{Op: "del", Key: full, Err: err}
	}
	c.log.Debug("invalidated key", Fields{"key": full})
	return nil
}

// deliver hands a peer's entry to the local flight waiting on key, if any.
func (c *Coordinator) deliver(key string, value []byte) {
	if f := c.flights.lookup(key); f != nil {
		f.offer(value)
	}
}

func (c *Coordinator) peerError(op, key string, err error) {
	c.hooks.PeerError(op, key, err)
	c.log.Warn("peer "+op+" failed", Fields{"key": key, "err": err})
}

func cacheKey(scope, key string) string { return scope + ":" + key }
