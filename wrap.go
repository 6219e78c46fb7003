package flightcache

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/unkn0wn-root/flightcache/codec"
	"github.com/unkn0wn-root/flightcache/internal/wire"
	"github.com/unkn0wn-root/flightcache/peer"
	"github.com/unkn0wn-root/flightcache/store"
)

// EmptyPolicy overrides the coordinator's SaveEmptyValues setting for one function.
type EmptyPolicy uint8

const (
	EmptyDefault EmptyPolicy = iota // follow Coordinator.SaveEmptyValues
	EmptySkip                       // never store empty results
	EmptySave                       // store empty results with an empty marker
)

// Params configure one wrapped function. Key is required.
type Params[A, V any] struct {
	// Scope prefixes every key ("<scope>:<key>"). Blank => the wrapped function's
	// package-qualified name ("pkg.Func").
	Scope string
	Key   KeyFunc[A]

	// TTL wins over TTLFunc; both unset => Coordinator.DefaultTTL.
	TTL     Expiry
	TTLFunc func(A, V) Expiry

	Empty EmptyPolicy
	// StaleWindow > 0 overrides the coordinator's window, < 0 disables it, 0 inherits.
	StaleWindow time.Duration

	// IsEmpty decides whether a result counts as empty. nil => nil pointer, map,
	// slice, interface, chan or func.
	IsEmpty func(V) bool
	// Codec serializes results. nil => codec.JSON.
	Codec codec.Codec[V]
}

// Wrap returns fn with caching, per-key single-flight and stale-while-revalidate
// applied through c.
//
// Concurrent calls for the same key share one execution of fn. If that execution
// fails, the caller that started it gets the error unchanged and every caller that
// joined it runs fn once more on its own, without caching. Callers stop waiting when
// their context ends; the execution itself always runs to completion.
func Wrap[A, V any](c *Coordinator, fn func(context.Context, A) (V, error), p Params[A, V]) (func(context.Context, A) (V, error), error) {
	if c == nil {
		return nil, &ConfigError{Field: "Coordinator", Reason: "is nil"}
	}
	if fn == nil {
		return nil, &ConfigError{Field: "fn", Reason: "is nil"}
	}
	if p.Key == nil {
		return nil, &ConfigError{Field: "Key", Reason: "resolver is required"}
	}

	m := &memo[A, V]{c: c, fn: fn, p: p, scope: strings.TrimSpace(p.Scope)}
	if m.scope == "" {
		m.scope = funcName(fn)
	}
	if m.p.Codec == nil {
		m.p.Codec = codec.JSON[V]{}
	}
	if m.p.IsEmpty == nil {
		m.p.IsEmpty = isNil[V]
	}
	return m.call, nil
}

// MustWrap is Wrap that panics on error.
func MustWrap[A, V any](c *Coordinator, fn func(context.Context, A) (V, error), p Params[A, V]) func(context.Context, A) (V, error) {
	w, err := Wrap(c, fn, p)
	if err != nil {
		panic(err)
	}
	return w
}

type memo[A, V any] struct {
	c     *Coordinator
	fn    func(context.Context, A) (V, error)
	p     Params[A, V]
	scope string
}

func (m *memo[A, V]) call(ctx context.Context, args A) (V, error) {
	var zero V
	c := m.c
	if !c.Enabled() {
		return m.invoke(ctx, args)
	}

	k := m.p.Key(args)
	if strings.TrimSpace(k) == "" {
		return zero, &KeyError{Scope: m.scope, Key: k}
	}
	key := cacheKey(m.scope, k)

	v, ok, err := m.lookup(ctx, key, args)
	if err != nil || ok {
		return v, err
	}
	c.hooks.Miss(key)

	f, leader := c.flights.claim(key)
	if !leader {
		c.hooks.Coalesced(key)
		return m.follow(ctx, f, args)
	}
	go m.lead(context.WithoutCancel(ctx), key, args, f)

	o, err := f.wait(ctx)
	if err != nil {
		return zero, err
	}
	if o.err != nil {
		return zero, o.err
	}
	v, _ = o.val.(V)
	return v, nil
}

// lookup serves fresh and stale entries. A stale hit starts a background refresh
// unless a generation for key is already running.
func (m *memo[A, V]) lookup(ctx context.Context, key string, args A) (V, bool, error) {
	var zero V
	c := m.c
	st := c.Store()

	raw, ok, err := st.Get(ctx, key)
	if err != nil {
		return zero, false, &StoreError{Op: "get", Key: key, Err: err}
	}
	if !ok {
		return zero, false, nil
	}
	ent, v, err := m.decode(raw)
	if err != nil {
		c.hooks.CorruptEntry(key, err)
		c.log.Warn("dropping undecodable entry", Fields{"key": key, "err": err})
		if derr := st.Del(ctx, key); derr != nil {
			c.log.Warn("delete of undecodable entry failed", Fields{"key": key, "err": derr})
		}
		return zero, false, nil
	}

	switch classify(ent, c.now(), m.window()) {
	case fresh:
		c.hooks.Hit(key)
		return v, true, nil
	case stale:
		f, leader := c.flights.claim(key)
		if leader {
			go m.lead(context.WithoutCancel(ctx), key, args, f)
		}
		c.hooks.StaleServed(key, leader)
		c.log.Debug("served stale entry", Fields{"key": key, "refreshing": leader})
		return v, true, nil
	}
	return zero, false, nil
}

// follow waits for another caller's generation.
func (m *memo[A, V]) follow(ctx context.Context, f *flight, args A) (V, error) {
	var zero V
	o, err := f.wait(ctx)
	if err != nil {
		return zero, err
	}
	if o.err != nil {
		return m.invoke(ctx, args)
	}
	v, ok := o.val.(V)
	if !ok && o.val != nil {
		// same scope wrapped with a different result type
		return m.invoke(ctx, args)
	}
	return v, nil
}

// lead runs the generation for f and resolves it. ctx is detached from the caller.
func (m *memo[A, V]) lead(ctx context.Context, key string, args A, f *flight) {
	c := m.c
	p := c.Peer()

	held, err := p.Lock(ctx, key)
	if err != nil {
		// degrade to local-only single-flight
		c.peerError("lock", key, err)
	} else if !held {
		c.hooks.RemoteContended(key)
		c.log.Debug("generation running on a peer", Fields{"key": key})
		m.awaitRemote(ctx, key, args, f)
		return
	}

	// a caller that missed just before the previous generation's write landed
	// claims a new ticket; the entry is already there
	if v, ok := m.recheck(ctx, key); ok {
		c.flights.finish(key, f, outcome{val: v})
		m.unlock(ctx, p, key, held)
		return
	}

	o, frame := m.generate(ctx, key, args)
	c.flights.finish(key, f, o)

	// an empty frame tells contended peers the generation failed
	if err := p.Emit(ctx, key, frame); err != nil {
		c.peerError("emit", key, err)
	}
	m.unlock(ctx, p, key, held)
}

func (m *memo[A, V]) unlock(ctx context.Context, p peer.Coordinator, key string, held bool) {
	if held {
		if err := p.Unlock(ctx, key); err != nil {
			m.c.peerError("unlock", key, err)
		}
	}
}

// generate runs fn and stores its result. frame is the encoded entry to share with
// peers; it is nil when the generation failed.
func (m *memo[A, V]) generate(ctx context.Context, key string, args A) (outcome, []byte) {
	c := m.c
	v, err := m.invoke(ctx, args)
	if err != nil {
		return m.fail(key, err), nil
	}

	frame, ttl, skip, err := m.frame(args, v)
	if err != nil {
		return m.fail(key, err), nil
	}
	if skip != "" {
		c.hooks.WriteSkipped(key, skip)
		c.log.Debug("store write skipped", Fields{"key": key, "reason": skip})
		return outcome{val: v}, frame
	}

	st := c.Store()
	if !c.WaitForWrite() {
		go func() {
			if err := m.write(ctx, st, key, frame, ttl); err != nil {
				c.hooks.AsyncWriteFailed(key, err)
				c.log.Error("async store write failed", Fields{"key": key, "err": err})
			}
		}()
		return outcome{val: v}, frame
	}
	if err := m.write(ctx, st, key, frame, ttl); err != nil {
		return m.fail(key, &StoreError{Op: "set", Key: key, Err: err}), nil
	}
	return outcome{val: v}, frame
}

func (m *memo[A, V]) fail(key string, err error) outcome {
	m.c.hooks.GenerationFailed(key, err)
	m.c.log.Debug("generation failed", Fields{"key": key, "err": err})
	return outcome{err: err}
}

func (m *memo[A, V]) write(ctx context.Context, st store.Store, key string, frame []byte, ttl time.Duration) error {
	ok, err := st.Set(ctx, key, frame, ttl)
	if err != nil {
		return err
	}
	if !ok {
		m.c.hooks.StoreRejected(key)
		m.c.log.Debug("store rejected write", Fields{"key": key})
	}
	return nil
}

// frame encodes v as a stored entry. skip names why it must not be written.
func (m *memo[A, V]) frame(args A, v V) (b []byte, ttl time.Duration, skip string, err error) {
	now := m.c.now()
	ent := wire.Entry{StoredAt: now}

	if m.p.IsEmpty(v) {
		ent.Empty = true
		if !m.saveEmpty() {
			return wire.Encode(ent), 0, SkipEmpty, nil
		}
	} else {
		ent.Payload, err = m.p.Codec.Encode(v)
		if err != nil {
			return nil, 0, "", fmt.Errorf("flightcache: encode %s result: %w", m.scope, err)
		}
	}

	exp, err := m.expiry(args, v)
	if err != nil {
		return nil, 0, "", err
	}
	ttl, ok := stamp(&ent, now, exp, m.window())
	if !ok {
		skip = SkipNonPositive
	}
	return wire.Encode(ent), ttl, skip, nil
}

func (m *memo[A, V]) decode(raw []byte) (wire.Entry, V, error) {
	var zero V
	ent, err := wire.Decode(raw)
	if err != nil {
		return ent, zero, err
	}
	if ent.Empty {
		return ent, zero, nil
	}
	v, err := m.p.Codec.Decode(ent.Payload)
	if err != nil {
		return ent, zero, fmt.Errorf("flightcache: decode %s entry: %w", m.scope, err)
	}
	return ent, v, nil
}

// awaitRemote resolves f while a peer holds the lock: with the peer's entry if it
// arrives in time, else with whatever the store has by then, else by running fn
// without storing the result. An empty event (the peer's generation failed) ends
// the wait early.
func (m *memo[A, V]) awaitRemote(ctx context.Context, key string, args A, f *flight) {
	c := m.c
	timer := time.NewTimer(c.remoteWait)
	defer timer.Stop()

	select {
	case raw := <-f.peer:
		if len(raw) == 0 {
			c.log.Debug("peer generation failed", Fields{"key": key})
			break
		}
		if _, v, err := m.decode(raw); err == nil {
			c.flights.finish(key, f, outcome{val: v})
			return
		}
	case <-timer.C:
		c.log.Debug("no peer result before timeout", Fields{"key": key, "wait": c.remoteWait})
	}

	if v, ok := m.reread(ctx, key); ok {
		c.flights.finish(key, f, outcome{val: v})
		return
	}
	v, err := m.invoke(ctx, args)
	if err != nil {
		c.flights.finish(key, f, m.fail(key, err))
		return
	}
	c.flights.finish(key, f, outcome{val: v})
}

// recheck reports a fresh entry for key. Errors and stale entries count as a miss.
func (m *memo[A, V]) recheck(ctx context.Context, key string) (V, bool) {
	var zero V
	raw, ok, err := m.c.Store().Get(ctx, key)
	if err != nil || !ok {
		return zero, false
	}
	ent, v, err := m.decode(raw)
	if err != nil || classify(ent, m.c.now(), m.window()) != fresh {
		return zero, false
	}
	return v, true
}

// reread accepts a fresh or stale entry. Errors count as a miss.
func (m *memo[A, V]) reread(ctx context.Context, key string) (V, bool) {
	var zero V
	raw, ok, err := m.c.Store().Get(ctx, key)
	if err != nil || !ok {
		return zero, false
	}
	ent, v, err := m.decode(raw)
	if err != nil || classify(ent, m.c.now(), m.window()) == expired {
		return zero, false
	}
	return v, true
}

// invoke runs fn, turning a panic into a *PanicError.
func (m *memo[A, V]) invoke(ctx context.Context, args A) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero V
			v, err = zero, &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return m.fn(ctx, args)
}

func (m *memo[A, V]) expiry(args A, v V) (Expiry, error) {
	if m.p.TTL.IsSet() {
		return m.p.TTL, nil
	}
	if m.p.TTLFunc != nil {
		e := m.p.TTLFunc(args, v)
		if !e.IsSet() {
			return Expiry{}, &ConfigError{Field: "TTLFunc", Reason: "returned an unset Expiry for " + m.scope}
		}
		return e, nil
	}
	return After(m.c.DefaultTTL()), nil
}

func (m *memo[A, V]) window() time.Duration {
	switch w := m.p.StaleWindow; {
	case w > 0:
		return w
	case w < 0:
		return 0
	}
	return m.c.StaleWindow()
}

func (m *memo[A, V]) saveEmpty() bool {
	switch m.p.Empty {
	case EmptySave:
		return true
	case EmptySkip:
		return false
	}
	return m.c.SaveEmptyValues()
}

func isNil[V any](v V) bool {
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// funcName is the package-qualified symbol of fn without its import path, e.g.
// "users.(*Repo).Load", so the default scope is usable as a file name.
func funcName(fn any) string {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return fmt.Sprintf("%T", fn)
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
