package peer

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// envelope is the event payload on the wire.
type envelope struct {
	Origin string `msgpack:"o"`
	Key    string `msgpack:"k"`
	Value  []byte `msgpack:"v"`
}

// fanout tags outgoing events with this process' origin and dispatches incoming
// ones to registered handlers, dropping our own and malformed messages.
type fanout struct {
	origin string

	mu sync.RWMutex
	hs []Handler
}

func newFanout() *fanout { return &fanout{origin: token()} }

func (f *fanout) add(h Handler) {
	if h == nil {
		return
	}
	f.mu.Lock()
	f.hs = append(f.hs, h)
	f.mu.Unlock()
}

func (f *fanout) encode(key string, value []byte) ([]byte, error) {
	return msgpack.Marshal(envelope{Origin: f.origin, Key: key, Value: value})
}

// dispatch reports whether data was delivered to handlers.
func (f *fanout) dispatch(data []byte) bool {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil || env.Key == "" {
		return false
	}
	if env.Origin == f.origin {
		return false
	}
	f.mu.RLock()
	hs := f.hs
	f.mu.RUnlock()
	for _, h := range hs {
		h(env.Key, env.Value)
	}
	return true
}

// token returns 16 random bytes hex-encoded.
func token() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("peer: crypto/rand: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}
