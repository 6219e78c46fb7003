// Package file is a filesystem store. One file per key lives in Dir:
//
//	<key>.cache                 no expiry
//	<key>.<epochMillis>.cache   expires at epochMillis (13 digits)
//
// Keys ending in "." plus 13 digits are rejected; their files would be
// indistinguishable from another key's expiring file.
//
// Reads are lazily expiring: an expired file reads as a miss but is left for the
// sweep loop, which deletes every file whose encoded epoch is in the past.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/flightcache/store"
)

const (
	suffix               = ".cache"
	defaultSweepInterval = time.Minute
)

var (
	ErrInvalidKey = errors.New("file store: key must be non-empty, free of path separators and not end in .<13 digits>")

	expiringName = regexp.MustCompile(`^(.+)\.(\d{13})\.cache$`)
	// a key with this suffix would read as another key's expiry stamp
	stampSuffix = regexp.MustCompile(`\.\d{13}$`)
)

// swappable in tests
var (
	createTemp = os.CreateTemp
	rename     = os.Rename
)

type Config struct {
	Dir string
	// SweepInterval between expired-file sweeps. 0 => 1m, < 0 disables the loop.
	SweepInterval time.Duration
	// Now overrides the clock (tests).
	Now func() time.Time
}

type Store struct {
	dir string
	now func() time.Time

	// serializes same-directory rewrites so a key never has two files at once
	mu sync.Mutex

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ store.Store = (*Store)(nil)

// New validates (or creates) cfg.Dir and starts the sweep loop.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("file store: dir is required")
	}
	if err := prepareDir(cfg.Dir); err != nil {
		return nil, err
	}
	s := &Store{dir: cfg.Dir, now: cfg.Now}
	if s.now == nil {
		s.now = time.Now
	}

	interval := cfg.SweepInterval
	if interval == 0 {
		interval = defaultSweepInterval
	}
	if interval > 0 {
		s.ticker = time.NewTicker(interval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go s.sweepLoop()
	}
	return s, nil
}

func prepareDir(dir string) error {
	st, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("file store: create directory %q: %w", dir, err)
		}
		return nil
	case err != nil:
		return err
	case !st.IsDir():
		return fmt.Errorf("file store: path %q is not a directory", dir)
	}

	// read + write probe
	if _, err := os.ReadDir(dir); err != nil {
		return fmt.Errorf("file store: path %q needs to be readable and writable: %w", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("file store: path %q needs to be readable and writable: %w", dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	files, err := s.filesFor(key)
	if err != nil || len(files) == 0 {
		return nil, false, err
	}
	name := files[0]
	if exp, ok := expiryOf(name); ok && exp < s.now().UnixMilli() {
		return nil, false, nil
	}
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		// lost a race with the sweeper or a rewrite
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	name := key + suffix
	if ttl > 0 {
		name = key + "." + strconv.FormatInt(s.now().Add(ttl).UnixMilli(), 10) + suffix
	}

	tmp, err := createTemp(s.dir, ".tmp-*")
	if err != nil {
		return false, err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return false, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.removeAll(key); err != nil {
		_ = os.Remove(tmpPath)
		return false, err
	}
	if err := rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpPath)
		return false, err
	}
	return true, nil
}

func (s *Store) Del(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeAll(key)
}

// Sweep deletes every file whose encoded expiry is in the past and reports how many
// were removed.
func (s *Store) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	now := s.now().UnixMilli()
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		exp, ok := expiryOf(e.Name())
		if !ok || exp >= now {
			continue
		}
		if err := remove(filepath.Join(s.dir, e.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *Store) Close(_ context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop()
			s.wg.Wait()
		}
	})
	return nil
}

func (s *Store) sweepLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			_, _ = s.Sweep()
		case <-s.stopCh:
			return
		}
	}
}

// filesFor lists files belonging to key, newest expiry first.
func (s *Store) filesFor(key string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(`^` + regexp.QuoteMeta(key) + `(\.\d{13})?\.cache$`)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && re.MatchString(e.Name()) {
			out = append(out, e.Name())
		}
	}
	if len(out) > 1 {
		// transient during a rewrite; prefer the latest expiry (no-expiry wins)
		best := 0
		for i := 1; i < len(out); i++ {
			if later(out[i], out[best]) {
				best = i
			}
		}
		out[0], out[best] = out[best], out[0]
	}
	return out, nil
}

func (s *Store) removeAll(key string) error {
	files, err := s.filesFor(key)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := remove(filepath.Join(s.dir, f)); err != nil {
			return err
		}
	}
	return nil
}

func later(a, b string) bool {
	ea, okA := expiryOf(a)
	eb, okB := expiryOf(b)
	if !okA {
		return okB
	}
	return okB && ea > eb
}

func expiryOf(name string) (int64, bool) {
	m := expiringName.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	ms, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

func remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func checkKey(key string) error {
	if key == "" || strings.ContainsRune(key, '/') || strings.ContainsRune(key, filepath.Separator) {
		return ErrInvalidKey
	}
	if stampSuffix.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}
