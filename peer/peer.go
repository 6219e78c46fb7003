// Package peer coordinates generations across processes that share a store.
//
// A Coordinator grants a short-lived per-key lock to the process that runs a
// generation and carries the finished entry to the others, so they can return it
// without re-reading the store. Delivery is best-effort: a missed event costs one
// store read after flightcache's remote wait, never a wrong value.
package peer

import "context"

// Handler receives an entry emitted by a peer. value is an opaque framed entry, or
// empty when the peer's generation failed.
type Handler func(key string, value []byte)

type Coordinator interface {
	// Lock tries to take the generation lock for key. false means another process holds it.
	Lock(ctx context.Context, key string) (bool, error)
	// Unlock releases a lock taken by this process. Releasing a lock not held is a no-op.
	Unlock(ctx context.Context, key string) error
	// Emit publishes a finished entry to other processes. An empty value reports a
	// failed generation so waiting processes stop waiting.
	Emit(ctx context.Context, key string, value []byte) error
	// OnEvent registers h for entries emitted by other processes.
	OnEvent(h Handler)
	Close(ctx context.Context) error
}

// Local is the single-process default: every lock is granted and nothing is published.
type Local struct{}

var _ Coordinator = Local{}

func (Local) Lock(context.Context, string) (bool, error) { return true, nil }
func (Local) Unlock(context.Context, string) error       { return nil }
func (Local) Emit(context.Context, string, []byte) error { return nil }
func (Local) OnEvent(Handler)                            {}
func (Local) Close(context.Context) error                { return nil }
