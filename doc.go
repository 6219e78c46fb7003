// Package flightcache memoizes expensive functions against a pluggable byte store
// with per-key single-flight, optional cross-process coordination and
// stale-while-revalidate.
//
// Components:
//   - Coordinator: shared settings, the store, the peer coordinator and the
//     in-flight generations. Settings can be changed at runtime.
//   - Wrap: turns func(ctx, A) (V, error) into a cached function of the same shape.
//   - store.Store: byte store with TTL (memory, file, Redis, Ristretto, BigCache).
//   - codec.Codec[V]: (de)serializes V <-> []byte. JSON by default.
//   - peer.Coordinator: distributed lock + result fan-out (Redis, NATS). Local by default.
//
// Keys:
//
//	<scope>:<key>  - scope defaults to the wrapped function's name
//
// Usage:
//
//	c := flightcache.MustNew(flightcache.Options{StaleWindow: 30 * time.Second})
//	getUser := flightcache.MustWrap(c, repo.GetUser, flightcache.Params[string, *User]{
//		Scope: "user",
//		Key:   func(id string) string { return id },
//		TTL:   flightcache.After(5 * time.Minute),
//	})
//	u, err := getUser(ctx, "42")
package flightcache
