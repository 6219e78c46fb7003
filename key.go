package flightcache

import (
	"fmt"
	"reflect"
)

// KeyFunc derives the per-call part of a cache key from the call's arguments.
type KeyFunc[A any] func(A) string

// KeyResolver builds a KeyFunc from ref, which is either a func(A) string or the
// name of a method on target with that signature.
func KeyResolver[A any](target any, ref any) (KeyFunc[A], error) {
	switch r := ref.(type) {
	case KeyFunc[A]:
		if r == nil {
			return nil, &ConfigError{Field: "Key", Reason: "resolver function is nil"}
		}
		return r, nil
	case func(A) string:
		if r == nil {
			return nil, &ConfigError{Field: "Key", Reason: "resolver function is nil"}
		}
		return r, nil
	case string:
		if target == nil {
			return nil, &ConfigError{Field: "Key", Reason: fmt.Sprintf("method %q needs a target", r)}
		}
		m := reflect.ValueOf(target).MethodByName(r)
		if !m.IsValid() {
			return nil, &ConfigError{Field: "Key", Reason: fmt.Sprintf("%T has no method %q", target, r)}
		}
		fn, ok := m.Interface().(func(A) string)
		if !ok {
			return nil, &ConfigError{
				Field:  "Key",
				Reason: fmt.Sprintf("method %T.%s is %s, want func(%s) string", target, r, m.Type(), reflect.TypeOf((*A)(nil)).Elem()),
			}
		}
		return fn, nil
	default:
		return nil, &ConfigError{Field: "Key", Reason: fmt.Sprintf("unsupported resolver %T", ref)}
	}
}
