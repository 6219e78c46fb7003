package flightcache

import (
	"time"

	"github.com/unkn0wn-root/flightcache/internal/wire"
)

// Expiry is a per-call time-to-live. The zero value is unset.
type Expiry struct {
	d     time.Duration
	set   bool
	never bool
}

// Never keeps entries until they are invalidated or evicted by the store.
var Never = Expiry{set: true, never: true}

// After expires entries d after they are stored. d <= 0 disables the write.
func After(d time.Duration) Expiry { return Expiry{d: d, set: true} }

func Seconds(n int) Expiry { return After(time.Duration(n) * time.Second) }

func (e Expiry) IsSet() bool   { return e.set }
func (e Expiry) IsNever() bool { return e.never }

// Duration is 0 for Never and for an unset Expiry.
func (e Expiry) Duration() time.Duration {
	if e.never {
		return 0
	}
	return e.d
}

func (e Expiry) String() string {
	switch {
	case !e.set:
		return "unset"
	case e.never:
		return "never"
	}
	return e.d.String()
}

type freshness uint8

const (
	fresh freshness = iota
	stale
	expired
)

// classify places a decoded entry relative to now. window is the effective stale
// window of the reading call; a recorded StaleUntil takes precedence over it.
func classify(e wire.Entry, now time.Time, window time.Duration) freshness {
	if e.ExpiresAt.IsZero() || now.Before(e.ExpiresAt) {
		return fresh
	}
	if window <= 0 {
		return expired
	}
	until := e.StaleUntil
	if until.IsZero() {
		until = e.ExpiresAt.Add(window)
	}
	if now.Before(until) {
		return stale
	}
	return expired
}

// stamp fills the entry's expiry markers and returns the store-level TTL.
// ok is false for a finite, non-positive TTL.
func stamp(e *wire.Entry, now time.Time, exp Expiry, window time.Duration) (ttl time.Duration, ok bool) {
	if exp.IsNever() {
		return 0, true
	}
	d := exp.Duration()
	if d <= 0 {
		return 0, false
	}
	e.ExpiresAt = now.Add(d)
	ttl = d
	if window > 0 {
		e.StaleUntil = e.ExpiresAt.Add(window)
		ttl += window
	}
	return ttl, true
}
