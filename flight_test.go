package flightcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRegistryClaimIsExclusive(t *testing.T) {
	r := newRegistry()

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	leaders := 0
	flights := map[*flight]bool{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, leader := r.claim("k")
			mu.Lock()
			defer mu.Unlock()
			flights[f] = true
			if leader {
				leaders++
			}
		}()
	}
	wg.Wait()

	if leaders != 1 || len(flights) != 1 {
		t.Fatalf("want one leader and one flight, got leaders=%d flights=%d", leaders, len(flights))
	}
	if r.len() != 1 {
		t.Fatalf("len: %d", r.len())
	}
}

func TestRegistryFinishReleasesAndResolves(t *testing.T) {
	r := newRegistry()
	f, _ := r.claim("k")
	r.finish("k", f, outcome{val: 42})

	if r.lookup("k") != nil || r.len() != 0 {
		t.Fatalf("ticket not released")
	}
	o, err := f.wait(context.Background())
	if err != nil || o.val != 42 {
		t.Fatalf("outcome: %+v err=%v", o, err)
	}

	// a new claim starts a new flight
	g, leader := r.claim("k")
	if !leader || g == f {
		t.Fatalf("claim after finish joined the finished flight")
	}

	// finishing the stale flight must not drop the new ticket
	r.finish("k", f, outcome{})
	if r.lookup("k") != g {
		t.Fatalf("old finish removed the new ticket")
	}
}

func TestFlightResolvesOnce(t *testing.T) {
	f := newFlight()
	f.resolve(outcome{val: "first"})
	f.resolve(outcome{err: errors.New("second")})
	o, _ := f.wait(context.Background())
	if o.val != "first" || o.err != nil {
		t.Fatalf("outcome overwritten: %+v", o)
	}
}

func TestFlightWaitHonoursContext(t *testing.T) {
	f := newFlight()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want DeadlineExceeded, got %v", err)
	}
}

func TestFlightOfferNeverBlocks(t *testing.T) {
	f := newFlight()
	f.offer([]byte("a"))
	f.offer([]byte("b"))
	if got := string(<-f.peer); got != "a" {
		t.Fatalf("first offer kept: %q", got)
	}
}

func TestRegistrySpreadsKeys(t *testing.T) {
	r := newRegistry()
	for i := 0; i < 1000; i++ {
		r.claim(fmt.Sprintf("key-%d", i))
	}
	used := 0
	for i := range r.shards {
		if len(r.shards[i].m) > 0 {
			used++
		}
	}
	if used < registryShards/2 {
		t.Fatalf("keys concentrated in %d shards", used)
	}
	if r.len() != 1000 {
		t.Fatalf("len: %d", r.len())
	}
}
