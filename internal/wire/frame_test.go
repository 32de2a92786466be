package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{
		Name:    "LoginRequest",
		Flags:   FlagIsResponse | FlagIsError,
		Payload: []byte{0x01, 0x02, 0x03},
	}

	var buf bytes.Buffer
	if err := WriteEnvelope(&buf, env, DefaultLimits()); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadEnvelope(bytes.NewReader(buf.Bytes()), DefaultLimits())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Name != env.Name {
		t.Fatalf("name mismatch: %q", got.Name)
	}
	if got.Flags != env.Flags {
		t.Fatalf("flags mismatch: %#x", got.Flags)
	}
	if !bytes.Equal(got.Payload, env.Payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestEnvelopeRoundTripEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEnvelope(&buf, Envelope{Name: "Ping"}, DefaultLimits()); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadEnvelope(bytes.NewReader(buf.Bytes()), DefaultLimits())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Name != "Ping" || len(got.Payload) != 0 {
		t.Fatalf("unexpected envelope: %+v", got)
	}
}

func TestReadEnvelopeInvalidMagic(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEnvelope(&buf, Envelope{Name: "Ping"}, DefaultLimits()); err != nil {
		t.Fatalf("write: %v", err)
	}
	b := buf.Bytes()
	b[0], b[1], b[2], b[3] = 0, 0, 0, 0

	_, err := ReadEnvelope(bytes.NewReader(b), DefaultLimits())
	if !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestReadEnvelopeUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEnvelope(&buf, Envelope{Name: "Ping"}, DefaultLimits()); err != nil {
		t.Fatalf("write: %v", err)
	}
	b := buf.Bytes()
	binary.BigEndian.PutUint16(b[4:6], Version+1)

	_, err := ReadEnvelope(bytes.NewReader(b), DefaultLimits())
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestReadEnvelopeTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	env := Envelope{Name: "FolderListReply", Payload: []byte("abcdef")}
	if err := WriteEnvelope(&buf, env, DefaultLimits()); err != nil {
		t.Fatalf("write: %v", err)
	}
	b := buf.Bytes()
	_, err := ReadEnvelope(bytes.NewReader(b[:len(b)-2]), DefaultLimits())
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestReadEnvelopeShortHeader(t *testing.T) {
	_, err := ReadEnvelope(bytes.NewReader([]byte{0x44, 0x32}), DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestWriteEnvelopeEmptyDiscriminator(t *testing.T) {
	var buf bytes.Buffer
	err := WriteEnvelope(&buf, Envelope{Name: ""}, DefaultLimits())
	if !errors.Is(err, ErrDiscriminatorEmpty) {
		t.Fatalf("expected ErrDiscriminatorEmpty, got %v", err)
	}
}

func TestEnvelopeNameLimit(t *testing.T) {
	limits := DefaultLimits()
	long := strings.Repeat("x", int(limits.MaxNameBytes)+1)

	var buf bytes.Buffer
	if err := WriteEnvelope(&buf, Envelope{Name: long}, limits); !errors.Is(err, ErrDiscriminatorTooLong) {
		t.Fatalf("expected ErrDiscriminatorTooLong, got %v", err)
	}

	// a peer advertising an oversized name in the header is rejected on read
	permissive := Limits{MaxNameBytes: limits.MaxNameBytes * 2, MaxPayloadBytes: limits.MaxPayloadBytes}
	buf.Reset()
	if err := WriteEnvelope(&buf, Envelope{Name: long}, permissive); err != nil {
		t.Fatalf("write with permissive limits: %v", err)
	}
	if _, err := ReadEnvelope(bytes.NewReader(buf.Bytes()), limits); !errors.Is(err, ErrDiscriminatorTooLong) {
		t.Fatalf("expected ErrDiscriminatorTooLong on read, got %v", err)
	}
}

func TestEnvelopePayloadLimit(t *testing.T) {
	limits := Limits{MaxNameBytes: 256, MaxPayloadBytes: 8}

	var buf bytes.Buffer
	err := WriteEnvelope(&buf, Envelope{Name: "Ping", Payload: make([]byte, 9)}, limits)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge on write, got %v", err)
	}

	buf.Reset()
	if err := WriteEnvelope(&buf, Envelope{Name: "Ping", Payload: make([]byte, 9)}, DefaultLimits()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadEnvelope(bytes.NewReader(buf.Bytes()), limits); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge on read, got %v", err)
	}
}

func TestHeaderLenSmallerThanFixed(t *testing.T) {
	h := Header{Magic: Magic, Version: Version, HeaderLen: FixedHeaderLen - 1}
	b := EncodeHeader(h)
	_, err := ReadEnvelope(bytes.NewReader(b), DefaultLimits())
	if !errors.Is(err, ErrHeaderLenTooSmall) {
		t.Fatalf("expected ErrHeaderLenTooSmall, got %v", err)
	}
}
