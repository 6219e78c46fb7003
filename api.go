package flightcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/flightcache/peer"
	"github.com/unkn0wn-root/flightcache/store"
	"github.com/unkn0wn-root/flightcache/store/memory"
)

const (
	defaultTTL        = 60 * time.Second
	defaultRemoteWait = 10 * time.Second
)

// Options configure a Coordinator. Everything is optional.
type Options struct {
	Store  store.Store      // nil => in-process memory store
	Peer   peer.Coordinator // nil => peer.Local (single process)
	Logger Logger           // nil => NopLogger
	Hooks  Hooks            // nil => NopHooks

	Disabled        bool          // default false (enabled)
	DefaultTTL      time.Duration // used when a call sets neither TTL nor TTLFunc; 0 => 60s, < 0 => never written
	SaveEmptyValues bool          // store nil results with an empty marker
	AsyncWrite      bool          // return before the store write completes
	StaleWindow     time.Duration // serve expired entries this long while refreshing; <= 0 disables
	RemoteWait      time.Duration // how long to wait for a peer's result; 0 => 10s
	Clock           func() time.Time
}

// New builds a Coordinator. Wrap functions with Wrap to use it.
func New(opts Options) (*Coordinator, error) {
	if opts.RemoteWait < 0 {
		return nil, &ConfigError{Field: "RemoteWait", Reason: "must not be negative"}
	}

	c := &Coordinator{
		log:        opts.Logger,
		hooks:      opts.Hooks,
		now:        opts.Clock,
		remoteWait: coalesce(opts.RemoteWait, defaultRemoteWait),
		flights:    newRegistry(),
	}
	if c.log == nil {
		c.log = NopLogger{}
	}
	if c.hooks == nil {
		c.hooks = NopHooks{}
	}
	if c.now == nil {
		c.now = time.Now
	}

	c.enabled.Store(!opts.Disabled)
	c.defaultTTL.Store(int64(coalesce(opts.DefaultTTL, defaultTTL)))
	c.saveEmpty.Store(opts.SaveEmptyValues)
	c.waitForWrite.Store(!opts.AsyncWrite)
	c.SetStaleWindow(opts.StaleWindow)

	st := opts.Store
	if st == nil {
		st = memory.New(memory.Config{})
	}
	c.SetStore(st)
	c.SetPeer(opts.Peer)
	return c, nil
}

// MustNew is New that panics on error.
func MustNew(opts Options) *Coordinator {
	c, err := New(opts)
	if err != nil {
		panic(err)
	}
	return c
}

// Close closes the peer coordinator, then the store.
func (c *Coordinator) Close(ctx context.Context) error {
	var perr, serr error
	if p := c.Peer(); p != nil {
		perr = p.Close(ctx)
	}
	if s := c.Store(); s != nil {
		serr = s.Close(ctx)
	}
	if perr != nil {
		return perr
	}
	return serr
}
