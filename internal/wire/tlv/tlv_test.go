package tlv

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	fields := []Field{
		NewUint8(1, 7),
		NewUint32(2, 0xdeadbeef),
		NewUint64(3, 1<<40),
		NewBool(4, true),
		NewString(5, "hello"),
		NewBytes(6, []byte{0x00, 0xff}),
	}

	decoded, err := Decode(Encode(fields))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(fields) {
		t.Fatalf("field count mismatch: %d", len(decoded))
	}
	for i := range fields {
		if decoded[i].ID != fields[i].ID || decoded[i].Type != fields[i].Type {
			t.Fatalf("field %d header mismatch: %+v", i, decoded[i])
		}
		if !bytes.Equal(decoded[i].Value, fields[i].Value) {
			t.Fatalf("field %d value mismatch", i)
		}
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	fields, err := Decode(nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fields != nil {
		t.Fatalf("expected no fields, got %d", len(fields))
	}
}

func TestDecodeShortHeader(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x01, 0x06})
	if !errors.Is(err, ErrShortFieldHeader) {
		t.Fatalf("expected ErrShortFieldHeader, got %v", err)
	}
}

func TestDecodeShortValue(t *testing.T) {
	b := Encode([]Field{NewString(1, "abc")})
	_, err := Decode(b[:len(b)-1])
	if !errors.Is(err, ErrShortFieldValue) {
		t.Fatalf("expected ErrShortFieldValue, got %v", err)
	}
}

func TestTypedAccessors(t *testing.T) {
	f := NewUint32(9, 12345)
	v, err := f.Uint32()
	if err != nil || v != 12345 {
		t.Fatalf("uint32: %v %d", err, v)
	}
	if _, err := f.String(); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if _, err := f.Uint64(); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}

	bad := Field{ID: 9, Type: TypeUint32, Value: []byte{1, 2}}
	if _, err := bad.Uint32(); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
}

func TestBoolRejectsInvalidByte(t *testing.T) {
	f := Field{ID: 1, Type: TypeBool, Value: []byte{2}}
	if _, err := f.Bool(); err == nil {
		t.Fatalf("expected error for bool byte 2")
	}
}

func TestRepeatedIDsCarryLists(t *testing.T) {
	fields := []Field{
		NewString(1, "a"),
		NewString(2, "other"),
		NewString(1, "b"),
		NewString(1, "c"),
	}
	decoded, err := Decode(Encode(fields))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	all := GetAll(decoded, 1)
	if len(all) != 3 {
		t.Fatalf("expected 3 repeated fields, got %d", len(all))
	}
	want := []string{"a", "b", "c"}
	for i, f := range all {
		v, err := f.String()
		if err != nil || v != want[i] {
			t.Fatalf("repeated field %d: %q (%v)", i, v, err)
		}
	}

	first, ok := Get(decoded, 1)
	if !ok {
		t.Fatalf("Get missed repeated field")
	}
	if v, _ := first.String(); v != "a" {
		t.Fatalf("Get should return first occurrence, got %q", v)
	}
}
