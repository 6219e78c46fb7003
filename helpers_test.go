package flightcache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/flightcache/peer"
	"github.com/unkn0wn-root/flightcache/store"
)

type memEntry struct {
	v   []byte
	ttl time.Duration
}

// memStore never expires entries on its own; expiry is decided from the entry framing.
type memStore struct {
	mu sync.Mutex
	m  map[string]memEntry

	gets     atomic.Int32
	setCalls atomic.Int32 // Set entered
	sets     atomic.Int32 // Set completed
	dels     atomic.Int32

	getErr  error
	setErr  error
	reject  bool
	setGate chan struct{} // when non-nil, Set blocks until closed
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore { return &memStore{m: make(map[string]memEntry)} }

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.gets.Add(1)
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return e.v, true, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.setCalls.Add(1)
	if s.setGate != nil {
		<-s.setGate
	}
	if s.setErr != nil {
		return false, s.setErr
	}
	if s.reject {
		return false, nil
	}
	s.mu.Lock()
	s.m[key] = memEntry{v: value, ttl: ttl}
	s.mu.Unlock()
	s.sets.Add(1)
	return true, nil
}

func (s *memStore) Del(_ context.Context, key string) error {
	s.dels.Add(1)
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *memStore) Close(context.Context) error { return nil }

func (s *memStore) entry(key string) (memEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	return e, ok
}

func (s *memStore) put(key string, v []byte) {
	s.mu.Lock()
	s.m[key] = memEntry{v: v}
	s.mu.Unlock()
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type countHooks struct {
	NopHooks
	hits, stale, refreshes, misses, coalesced atomic.Int32
	contended, failed, rejected, corrupt      atomic.Int32
	asyncFailed                               atomic.Int32

	mu       sync.Mutex
	skipped  []string
	peerErrs []string
}

func (h *countHooks) Hit(string)                     { h.hits.Add(1) }
func (h *countHooks) Miss(string)                    { h.misses.Add(1) }
func (h *countHooks) Coalesced(string)               { h.coalesced.Add(1) }
func (h *countHooks) RemoteContended(string)         { h.contended.Add(1) }
func (h *countHooks) GenerationFailed(string, error) { h.failed.Add(1) }
func (h *countHooks) StoreRejected(string)           { h.rejected.Add(1) }
func (h *countHooks) CorruptEntry(string, error)     { h.corrupt.Add(1) }
func (h *countHooks) AsyncWriteFailed(string, error) { h.asyncFailed.Add(1) }

func (h *countHooks) StaleServed(_ string, refreshing bool) {
	h.stale.Add(1)
	if refreshing {
		h.refreshes.Add(1)
	}
}

func (h *countHooks) WriteSkipped(_, reason string) {
	h.mu.Lock()
	h.skipped = append(h.skipped, reason)
	h.mu.Unlock()
}

func (h *countHooks) PeerError(op, _ string, _ error) {
	h.mu.Lock()
	h.peerErrs = append(h.peerErrs, op)
	h.mu.Unlock()
}

func (h *countHooks) skips() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.skipped...)
}

func (h *countHooks) peerOps() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.peerErrs...)
}

// fakePeer lets a test decide lock outcomes and observe emitted entries.
type fakePeer struct {
	mu       sync.Mutex
	lock     func(key string) (bool, error)
	handler  peer.Handler
	emitted  map[string][]byte
	unlocked []string
}

var _ peer.Coordinator = (*fakePeer)(nil)

func (p *fakePeer) Lock(_ context.Context, key string) (bool, error) {
	p.mu.Lock()
	lock := p.lock
	p.mu.Unlock()
	if lock == nil {
		return true, nil
	}
	return lock(key)
}

func (p *fakePeer) Unlock(_ context.Context, key string) error {
	p.mu.Lock()
	p.unlocked = append(p.unlocked, key)
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) Emit(_ context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.emitted == nil {
		p.emitted = make(map[string][]byte)
	}
	p.emitted[key] = value
	return nil
}

func (p *fakePeer) OnEvent(h peer.Handler) {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
}

func (p *fakePeer) Close(context.Context) error { return nil }

func (p *fakePeer) unlockedKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.unlocked...)
}

func (p *fakePeer) send(key string, value []byte) {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	h(key, value)
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestCoordinator(t *testing.T, optsOpt func(*Options)) (*Coordinator, *memStore, *countHooks) {
	t.Helper()
	st := newMemStore()
	hooks := &countHooks{}
	opts := Options{Store: st, Hooks: hooks}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, st, hooks
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func identity(s string) string { return s }
