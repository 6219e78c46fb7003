// Package wire frames cache entries for storage.
//
// Entry layout (big endian):
//
//	magic(4) | ver(1) | flags(1) | storedAt(i64 ms) | expiresAt(i64 ms) | staleUntil(i64 ms) | vlen(u32) | payload(vlen)
//
// Timestamps are Unix epoch milliseconds; 0 means "not recorded".
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version   byte = 1
	flagEmpty byte = 1 << 0

	headerLen = 4 + 1 + 1 + 8 + 8 + 8 + 4
)

var (
	ErrCorrupt = errors.New("flightcache: corrupt entry")
	magic4     = [...]byte{'F', 'L', 'C', 'E'}
)

// Entry is one cached value plus its timing metadata. Entries are never mutated in
// place; a refresh writes a whole new entry.
type Entry struct {
	Payload []byte
	// Empty marks an empty result (nil pointer, nil slice, ...) that was cached on
	// purpose. Payload is ignored when set.
	Empty bool

	StoredAt   time.Time
	ExpiresAt  time.Time // logical hard expiry; zero => never
	StaleUntil time.Time // end of the stale-while-revalidate window; zero => none
}

func Encode(e Entry) []byte {
	var buf bytes.Buffer
	buf.Grow(headerLen + len(e.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var flags byte
	payload := e.Payload
	if e.Empty {
		flags |= flagEmpty
		payload = nil
	}
	buf.WriteByte(flags)

	var u8 [8]byte
	for _, t := range [...]time.Time{e.StoredAt, e.ExpiresAt, e.StaleUntil} {
		binary.BigEndian.PutUint64(u8[:], uint64(millis(t)))
		buf.Write(u8[:])
	}

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])
	buf.Write(payload)
	return buf.Bytes()
}

func Decode(b []byte) (Entry, error) {
	if len(b) < headerLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return Entry{}, ErrCorrupt
	}
	flags := b[5]
	if flags&^flagEmpty != 0 {
		return Entry{}, ErrCorrupt
	}

	off := 6
	var ts [3]time.Time
	for i := range ts {
		ts[i] = fromMillis(int64(binary.BigEndian.Uint64(b[off : off+8])))
		off += 8
	}

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off {
		return Entry{}, ErrCorrupt
	}

	e := Entry{
		Empty:      flags&flagEmpty != 0,
		StoredAt:   ts[0],
		ExpiresAt:  ts[1],
		StaleUntil: ts[2],
	}
	if e.Empty {
		if vlen != 0 {
			return Entry{}, ErrCorrupt
		}
		return e, nil
	}
	e.Payload = b[off:]
	return e, nil
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
