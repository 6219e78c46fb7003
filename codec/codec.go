// Package codec converts cached values to and from bytes.
//
// The coordinator stores codec output as the payload of its own entry framing, so a
// codec only has to round-trip V. JSON is used when a wrapped function does not pick
// one.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
