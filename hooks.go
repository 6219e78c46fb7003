package flightcache

// Write skip reasons reported through Hooks.WriteSkipped.
const (
	SkipEmpty       = "empty"
	SkipNonPositive = "non_positive_ttl"
)

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; they run on the call path.
// Keys are full cache keys ("<scope>:<key>").
type Hooks interface {
	// A fresh entry was served from the store.
	Hit(key string)
	// An expired entry inside its stale window was served; refreshing says whether
	// this call started the background refresh.
	StaleServed(key string, refreshing bool)
	// No usable entry; the caller goes on to claim the generation.
	Miss(key string)
	// The caller joined a generation already in flight.
	Coalesced(key string)
	// A peer process holds the distributed lock for key.
	RemoteContended(key string)
	// The wrapped operation failed (error or panic) while generating key.
	GenerationFailed(key string, err error)
	// The result was not written. reason ∈ {SkipEmpty, SkipNonPositive}.
	WriteSkipped(key, reason string)
	// The store refused a write (ok=false).
	StoreRejected(key string)
	// A write that nobody waited for failed.
	AsyncWriteFailed(key string, err error)
	// A distributed coordinator call failed. op ∈ {"lock", "unlock", "emit"}.
	PeerError(op, key string, err error)
	// A stored entry could not be decoded and was dropped.
	CorruptEntry(key string, err error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) Hit(string)                      {}
func (NopHooks) StaleServed(string, bool)        {}
func (NopHooks) Miss(string)                     {}
func (NopHooks) Coalesced(string)                {}
func (NopHooks) RemoteContended(string)          {}
func (NopHooks) GenerationFailed(string, error)  {}
func (NopHooks) WriteSkipped(string, string)     {}
func (NopHooks) StoreRejected(string)            {}
func (NopHooks) AsyncWriteFailed(string, error)  {}
func (NopHooks) PeerError(string, string, error) {}
func (NopHooks) CorruptEntry(string, error)      {}
