// Package memory is an in-process store backed by patrickmn/go-cache.
// Expired entries are invisible to Get immediately and physically removed by the
// go-cache janitor on every cleanup interval.
package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/unkn0wn-root/flightcache/store"
)

const defaultCleanupInterval = time.Minute

type Config struct {
	// CleanupInterval controls how often expired entries are swept. 0 => 1m.
	CleanupInterval time.Duration
}

type Store struct {
	c *gocache.Cache
}

var _ store.Store = (*Store)(nil)

func New(cfg Config) *Store {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	return &Store{c: gocache.New(gocache.NoExpiration, interval)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := item.([]byte)
	if !ok {
		// foreign value type; drop it
		s.c.Delete(key)
		return nil, false, nil
	}
	return clone(b), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.c.Set(key, clone(value), ttl)
	return true, nil
}

func (s *Store) Del(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

// Len reports the number of stored entries, including expired ones not yet swept.
func (s *Store) Len() int { return s.c.ItemCount() }

// Close drops all entries. The janitor goroutine stops once the store is collected.
func (s *Store) Close(_ context.Context) error {
	s.c.Flush()
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
