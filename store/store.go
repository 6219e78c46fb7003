// Package store defines the backing store abstraction used by flightcache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// bytes previously passed to Set for a key. The coordinator frames its own entries
// (value, stored-at, expiry and stale markers), so a store never needs to look
// inside them.
//
// Stores own their internal locking. The coordinator calls them concurrently for
// distinct and identical keys.
package store

import (
	"context"
	"time"
)

// Store is a minimal byte store with optional per-entry TTL.
type Store interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	// IO or remote failures return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. ttl <= 0 means no expiry.
	// ok=false with a nil error means the store refused the write (admission, pressure).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Del removes key. Missing keys are not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
