package flightcache

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const registryShards = 64

type outcome struct {
	val any
	err error
}

// flight is one in-progress generation. The outcome is assigned once; done is closed
// right after so waiters never observe a partial result.
type flight struct {
	done chan struct{}
	once sync.Once
	out  outcome

	// entries emitted by peers while the leader is remote-contended
	peer chan []byte
}

func newFlight() *flight {
	return &flight{done: make(chan struct{}), peer: make(chan []byte, 1)}
}

func (f *flight) resolve(o outcome) {
	f.once.Do(func() {
		f.out = o
		close(f.done)
	})
}

// wait blocks until the flight resolves or ctx ends. A cancelled wait leaves the
// generation running.
func (f *flight) wait(ctx context.Context) (outcome, error) {
	select {
	case <-f.done:
		return f.out, nil
	case <-ctx.Done():
		return outcome{}, ctx.Err()
	}
}

// offer hands a peer entry to the flight without blocking; extra entries are dropped.
func (f *flight) offer(b []byte) {
	select {
	case f.peer <- b:
	default:
	}
}

type registryShard struct {
	mu sync.Mutex
	m  map[string]*flight
}

// registry holds one ticket per cache key while a generation is in flight.
type registry struct {
	shards [registryShards]registryShard
}

func newRegistry() *registry {
	r := &registry{}
	for i := range r.shards {
		r.shards[i].m = make(map[string]*flight)
	}
	return r
}

func (r *registry) shard(key string) *registryShard {
	return &r.shards[xxhash.Sum64String(key)%registryShards]
}

// claim returns the flight for key, creating it when absent. leader is true only for
// the caller that created it.
func (r *registry) claim(key string) (f *flight, leader bool) {
	s := r.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.m[key]; ok {
		return f, false
	}
	f = newFlight()
	s.m[key] = f
	return f, true
}

func (r *registry) lookup(key string) *flight {
	s := r.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[key]
}

// finish drops the ticket and resolves f under the shard lock, so a caller that
// claims after this point starts a new flight instead of joining a finished one.
func (r *registry) finish(key string, f *flight, o outcome) {
	s := r.shard(key)
	s.mu.Lock()
	if s.m[key] == f {
		delete(s.m, key)
	}
	f.resolve(o)
	s.mu.Unlock()
}

func (r *registry) len() int {
	n := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		n += len(s.m)
		s.mu.Unlock()
	}
	return n
}
