package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	Magic   uint32 = 0x44324446 // "D2DF"
	Version uint16 = 1

	// FixedHeaderLen is the size of the fixed wire header. The discriminator
	// string follows it; header_len covers both.
	FixedHeaderLen uint16 = 20

	FlagIsResponse uint32 = 0x01
	FlagIsError    uint32 = 0x02
	FlagIsNotify   uint32 = 0x04
)

// Header is the fixed wire header.
type Header struct {
	Magic      uint32
	Version    uint16
	HeaderLen  uint16
	Flags      uint32
	PayloadLen uint64
}

// Envelope is one complete wire message: a discriminator naming the concrete
// message type plus an opaque TLV payload.
type Envelope struct {
	Name    string
	Flags   uint32
	Payload []byte
}

// Limits constrains envelope decode/encode memory use.
type Limits struct {
	MaxNameBytes    uint64
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxNameBytes:    256,
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

// ReadEnvelope reads a single framed envelope from r.
func ReadEnvelope(r io.Reader, limits Limits) (Envelope, error) {
	var fixed [FixedHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Envelope{}, ErrShortHeader
		}
		return Envelope{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Envelope{}, err
	}

	if h.HeaderLen < FixedHeaderLen {
		return Envelope{}, ErrHeaderLenTooSmall
	}
	nameLen := uint64(h.HeaderLen - FixedHeaderLen)
	if nameLen == 0 {
		return Envelope{}, ErrDiscriminatorEmpty
	}
	if nameLen > limits.MaxNameBytes {
		return Envelope{}, ErrDiscriminatorTooLong
	}
	if h.PayloadLen > limits.MaxPayloadBytes {
		return Envelope{}, ErrPayloadTooLarge
	}

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return Envelope{}, ErrTruncated
	}

	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Envelope{}, ErrTruncated
		}
	}

	return Envelope{Name: string(name), Flags: h.Flags, Payload: payload}, nil
}

// WriteEnvelope writes env to w using the wire format.
func WriteEnvelope(w io.Writer, env Envelope, limits Limits) error {
	nameLen := uint64(len(env.Name))
	if nameLen == 0 {
		return ErrDiscriminatorEmpty
	}
	if nameLen > limits.MaxNameBytes || nameLen > uint64(^uint16(0))-uint64(FixedHeaderLen) {
		return ErrDiscriminatorTooLong
	}
	if uint64(len(env.Payload)) > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}

	h := Header{
		Magic:      Magic,
		Version:    Version,
		HeaderLen:  FixedHeaderLen + uint16(nameLen),
		Flags:      env.Flags,
		PayloadLen: uint64(len(env.Payload)),
	}
	if _, err := w.Write(EncodeHeader(h)); err != nil {
		return err
	}
	if _, err := io.WriteString(w, env.Name); err != nil {
		return err
	}
	if len(env.Payload) == 0 {
		return nil
	}
	_, err := w.Write(env.Payload)
	return err
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, FixedHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], h.HeaderLen)
	binary.BigEndian.PutUint32(buf[8:12], h.Flags)
	binary.BigEndian.PutUint64(buf[12:20], h.PayloadLen)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != int(FixedHeaderLen) {
		return Header{}, ErrShortHeader
	}
	h := Header{
		Magic:      binary.BigEndian.Uint32(b[0:4]),
		Version:    binary.BigEndian.Uint16(b[4:6]),
		HeaderLen:  binary.BigEndian.Uint16(b[6:8]),
		Flags:      binary.BigEndian.Uint32(b[8:12]),
		PayloadLen: binary.BigEndian.Uint64(b[12:20]),
	}
	if h.Magic != Magic {
		return Header{}, ErrInvalidMagic
	}
	if h.Version != Version {
		return Header{}, ErrUnsupportedVersion
	}
	return h, nil
}
