package wire

import (
	"bytes"
	"testing"
	"time"
)

func mustDecode(t *testing.T, b []byte) Entry {
	t.Helper()
	e, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return e
}

func TestEntryRoundTripKeepsTimesAtMillisecondPrecision(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_123)
	in := Entry{
		Payload:    []byte(`"v1"`),
		StoredAt:   now,
		ExpiresAt:  now.Add(5 * time.Second),
		StaleUntil: now.Add(15 * time.Second),
	}
	got := mustDecode(t, Encode(in))
	if !bytes.Equal(got.Payload, in.Payload) {
		t.Fatalf("payload: got %q want %q", got.Payload, in.Payload)
	}
	if !got.StoredAt.Equal(in.StoredAt) || !got.ExpiresAt.Equal(in.ExpiresAt) || !got.StaleUntil.Equal(in.StaleUntil) {
		t.Fatalf("times: got %+v want %+v", got, in)
	}
	if got.Empty {
		t.Fatalf("unexpected empty flag")
	}
}

func TestEntryWithoutExpiryDecodesZeroTimes(t *testing.T) {
	got := mustDecode(t, Encode(Entry{Payload: []byte("x"), StoredAt: time.UnixMilli(42)}))
	if !got.ExpiresAt.IsZero() || !got.StaleUntil.IsZero() {
		t.Fatalf("expected zero expiry and stale marker, got %+v", got)
	}
}

func TestEmptyEntryDropsPayload(t *testing.T) {
	got := mustDecode(t, Encode(Entry{Payload: []byte("ignored"), Empty: true}))
	if !got.Empty || got.Payload != nil {
		t.Fatalf("expected empty entry without payload, got %+v", got)
	}
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	good := Encode(Entry{Payload: []byte("abc"), StoredAt: time.UnixMilli(1)})

	cases := map[string][]byte{
		"short":          good[:headerLen-1],
		"foreign":        []byte("not-an-entry-at-all-not-an-entry-at-all"),
		"trailing bytes": append(append([]byte(nil), good...), 0xDE, 0xAD),
		"truncated":      good[:len(good)-1],
	}
	badVersion := append([]byte(nil), good...)
	badVersion[4] = 9
	cases["version"] = badVersion
	badFlags := append([]byte(nil), good...)
	badFlags[5] = 0x80
	cases["flags"] = badFlags

	for name, b := range cases {
		if _, err := Decode(b); err != ErrCorrupt {
			t.Fatalf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
}
