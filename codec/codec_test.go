package codec

import (
	"strings"
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type profile struct {
	ID    int      `json:"id" msgpack:"id" cbor:"id"`
	Name  string   `json:"name" msgpack:"name" cbor:"name"`
	Roles []string `json:"roles" msgpack:"roles" cbor:"roles"`
}

func roundTrip[V any](t *testing.T, c Codec[V], v V) V {
	t.Helper()
	b, err := c.Encode(v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestStructCodecsPreserveFields(t *testing.T) {
	in := profile{ID: 7, Name: "Ada", Roles: []string{"admin", "ops"}}
	codecs := map[string]Codec[profile]{
		"json":    JSON[profile]{},
		"msgpack": Msgpack[profile]{},
		"cbor":    MustCBOR[profile](true),
	}
	for name, c := range codecs {
		got := roundTrip(t, c, in)
		if got.ID != in.ID || got.Name != in.Name || strings.Join(got.Roles, ",") != "admin,ops" {
			t.Fatalf("%s: got %+v want %+v", name, got, in)
		}
	}
}

func TestJSONNilPointerRoundTripsToNil(t *testing.T) {
	var in *profile
	if got := roundTrip[*profile](t, JSON[*profile]{}, in); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestProtobufCodec(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	got := roundTrip(t, Codec[*wrapperspb.StringValue](c), wrapperspb.String("hello"))
	if got.GetValue() != "hello" {
		t.Fatalf("got %q", got.GetValue())
	}
}

func TestLimitRejectsOversizedPayload(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 4}
	if _, err := c.Decode([]byte("12345")); err == nil {
		t.Fatalf("expected size error")
	}
	if got, err := c.Decode([]byte("1234")); err != nil || got != "1234" {
		t.Fatalf("got %q err=%v", got, err)
	}
}
