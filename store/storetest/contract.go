// Package storetest is a backend-agnostic contract suite for store.Store
// implementations.
package storetest

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/unkn0wn-root/flightcache/store"
)

// Options configures the contract checks.
type Options struct {
	// CaseName namespaces keys. Defaults to t.Name().
	CaseName string
	// SkipCloneCheck disables the "get returns a copy" assertion.
	SkipCloneCheck bool
	// SkipTTL disables the expiry checks for stores without per-entry TTL.
	SkipTTL bool
	// TTL used in expiry checks. 0 => 50ms.
	TTL time.Duration
	// TTLWait is how long to wait for expiry. 0 => 150ms.
	TTLWait time.Duration
}

// Run exercises round trips, overwrites, deletes, binary payloads and expiry.
func Run(t *testing.T, st store.Store, opts Options) {
	t.Helper()

	caseName := opts.CaseName
	if caseName == "" {
		caseName = t.Name()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 50 * time.Millisecond
	}
	wait := opts.TTLWait
	if wait <= 0 {
		wait = 150 * time.Millisecond
	}

	ctx := context.Background()
	key := func(s string) string { return sanitize(caseName) + ":" + s }

	// Miss.
	if b, ok, err := st.Get(ctx, key("missing")); err != nil || ok || b != nil {
		t.Fatalf("expected miss: ok=%v body=%q err=%v", ok, b, err)
	}

	// Set/Get round trip.
	mustSet(t, st, key("alpha"), []byte("value"), time.Minute)
	body, ok, err := st.Get(ctx, key("alpha"))
	if err != nil || !ok || string(body) != "value" {
		t.Fatalf("unexpected get result: ok=%v body=%q err=%v", ok, body, err)
	}
	if !opts.SkipCloneCheck {
		body[0] = 'X'
		again, _, _ := st.Get(ctx, key("alpha"))
		if string(again) != "value" {
			t.Fatalf("stored value changed through a returned slice: %q", again)
		}
	}

	// Overwrite replaces the value.
	mustSet(t, st, key("alpha"), []byte("second"), 0)
	if body, ok, _ := st.Get(ctx, key("alpha")); !ok || string(body) != "second" {
		t.Fatalf("overwrite: ok=%v body=%q", ok, body)
	}

	// Binary payloads are returned byte-for-byte.
	bin := []byte{0, 1, 2, 0xff, '\n', 0}
	mustSet(t, st, key("bin"), bin, 0)
	if body, ok, _ := st.Get(ctx, key("bin")); !ok || !bytes.Equal(body, bin) {
		t.Fatalf("binary payload: ok=%v body=%v", ok, body)
	}

	// Delete, including a missing key.
	if err := st.Del(ctx, key("alpha")); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, ok, _ := st.Get(ctx, key("alpha")); ok {
		t.Fatalf("deleted key still readable")
	}
	if err := st.Del(ctx, key("never-set")); err != nil {
		t.Fatalf("del of a missing key: %v", err)
	}

	if opts.SkipTTL {
		return
	}

	// TTL expiry.
	mustSet(t, st, key("ttl"), []byte("v"), ttl)
	if _, ok, _ := st.Get(ctx, key("ttl")); !ok {
		t.Fatalf("ttl entry missing before expiry")
	}
	time.Sleep(wait)
	if _, ok, err := st.Get(ctx, key("ttl")); ok || err != nil {
		t.Fatalf("ttl entry still readable after expiry: ok=%v err=%v", ok, err)
	}

	// ttl <= 0 never expires.
	mustSet(t, st, key("forever"), []byte("v"), 0)
	time.Sleep(wait)
	if _, ok, _ := st.Get(ctx, key("forever")); !ok {
		t.Fatalf("entry without ttl expired")
	}
}

func mustSet(t *testing.T, st store.Store, key string, v []byte, ttl time.Duration) {
	t.Helper()
	ok, err := st.Set(context.Background(), key, v, ttl)
	if err != nil || !ok {
		t.Fatalf("set %q: ok=%v err=%v", key, ok, err)
	}
}

func sanitize(s string) string {
	return strings.NewReplacer("/", "_", " ", "_").Replace(s)
}
