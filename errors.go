package flightcache

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigError.
	ErrConfiguration = errors.New("flightcache: invalid configuration")
	// ErrInvalidKey matches every *KeyError.
	ErrInvalidKey = errors.New("flightcache: invalid cache key")
)

// ConfigError reports a wrapping or per-call setting that can never work: a missing
// operation, an unusable key resolver, or a TTL function returning an unset Expiry.
// It is never retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("flightcache: invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// KeyError is returned before any store access when the resolver yields a blank key.
type KeyError struct {
	Scope string
	Key   string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("flightcache: invalid cache key %q from resolver of %s", e.Key, e.Scope)
}

func (e *KeyError) Is(target error) bool { return target == ErrInvalidKey }

// StoreError wraps a backing store failure for one invocation.
type StoreError struct {
	Op  string // "get" or "set"
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("flightcache: store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// PanicError carries a panic recovered from a wrapped operation.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("flightcache: operation panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
