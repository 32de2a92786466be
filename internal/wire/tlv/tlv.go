// Package tlv implements the type-length-value payload primitives carried
// inside a wire envelope.
package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const headerLen = 2 + 1 + 4

var (
	ErrShortFieldHeader = errors.New("tlv: short field header")
	ErrShortFieldValue  = errors.New("tlv: short field value")
	ErrTypeMismatch     = errors.New("tlv: field type mismatch")
	ErrInvalidLength    = errors.New("tlv: invalid value length")
)

// FieldType identifies the value encoding of one field.
type FieldType uint8

const (
	TypeUint8  FieldType = 1
	TypeUint16 FieldType = 2
	TypeUint32 FieldType = 3
	TypeUint64 FieldType = 4
	TypeBool   FieldType = 5
	TypeString FieldType = 6
	TypeBytes  FieldType = 7
)

// Field is one decoded TLV field. A field that is absent from a payload is
// unset; zero values are never used to signal absence.
type Field struct {
	ID    uint16
	Type  FieldType
	Value []byte
}

// Encode serializes fields back to back in declaration order.
func Encode(fields []Field) []byte {
	size := 0
	for _, f := range fields {
		size += headerLen + len(f.Value)
	}
	out := make([]byte, 0, size)
	for _, f := range fields {
		hdr := make([]byte, headerLen)
		binary.BigEndian.PutUint16(hdr[0:2], f.ID)
		hdr[2] = byte(f.Type)
		binary.BigEndian.PutUint32(hdr[3:7], uint32(len(f.Value)))
		out = append(out, hdr...)
		out = append(out, f.Value...)
	}
	return out
}

// Decode parses a full payload into its fields.
func Decode(payload []byte) ([]Field, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	fields := make([]Field, 0, 4)
	for i := 0; i < len(payload); {
		if len(payload)-i < headerLen {
			return nil, ErrShortFieldHeader
		}
		id := binary.BigEndian.Uint16(payload[i : i+2])
		ft := FieldType(payload[i+2])
		l := binary.BigEndian.Uint32(payload[i+3 : i+7])
		i += headerLen
		if uint32(len(payload)-i) < l {
			return nil, ErrShortFieldValue
		}
		val := make([]byte, l)
		copy(val, payload[i:i+int(l)])
		i += int(l)
		fields = append(fields, Field{ID: id, Type: ft, Value: val})
	}
	return fields, nil
}

// Get returns the first field with the given id.
func Get(fields []Field, id uint16) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// GetAll returns every field with the given id, in payload order. Repeated
// ids are how the wire format carries lists.
func GetAll(fields []Field, id uint16) []Field {
	var out []Field
	for _, f := range fields {
		if f.ID == id {
			out = append(out, f)
		}
	}
	return out
}

// NewUint8 creates a uint8 field.
func NewUint8(id uint16, v uint8) Field {
	return Field{ID: id, Type: TypeUint8, Value: []byte{v}}
}

// NewUint16 creates a uint16 field.
func NewUint16(id uint16, v uint16) Field {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return Field{ID: id, Type: TypeUint16, Value: buf}
}

// NewUint32 creates a uint32 field.
func NewUint32(id uint16, v uint32) Field {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return Field{ID: id, Type: TypeUint32, Value: buf}
}

// NewUint64 creates a uint64 field.
func NewUint64(id uint16, v uint64) Field {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return Field{ID: id, Type: TypeUint64, Value: buf}
}

// NewBool creates a bool field.
func NewBool(id uint16, v bool) Field {
	b := byte(0)
	if v {
		b = 1
	}
	return Field{ID: id, Type: TypeBool, Value: []byte{b}}
}

// NewString creates a string field.
func NewString(id uint16, v string) Field {
	return Field{ID: id, Type: TypeString, Value: []byte(v)}
}

// NewBytes creates a bytes field.
func NewBytes(id uint16, v []byte) Field {
	buf := make([]byte, len(v))
	copy(buf, v)
	return Field{ID: id, Type: TypeBytes, Value: buf}
}

// Uint8 returns the field value as uint8.
func (f Field) Uint8() (uint8, error) {
	if f.Type != TypeUint8 {
		return 0, ErrTypeMismatch
	}
	if len(f.Value) != 1 {
		return 0, ErrInvalidLength
	}
	return f.Value[0], nil
}

// Uint16 returns the field value as uint16.
func (f Field) Uint16() (uint16, error) {
	if f.Type != TypeUint16 {
		return 0, ErrTypeMismatch
	}
	if len(f.Value) != 2 {
		return 0, ErrInvalidLength
	}
	return binary.BigEndian.Uint16(f.Value), nil
}

// Uint32 returns the field value as uint32.
func (f Field) Uint32() (uint32, error) {
	if f.Type != TypeUint32 {
		return 0, ErrTypeMismatch
	}
	if len(f.Value) != 4 {
		return 0, ErrInvalidLength
	}
	return binary.BigEndian.Uint32(f.Value), nil
}

// Uint64 returns the field value as uint64.
func (f Field) Uint64() (uint64, error) {
	if f.Type != TypeUint64 {
		return 0, ErrTypeMismatch
	}
	if len(f.Value) != 8 {
		return 0, ErrInvalidLength
	}
	return binary.BigEndian.Uint64(f.Value), nil
}

// Bool returns the field value as bool.
func (f Field) Bool() (bool, error) {
	if f.Type != TypeBool {
		return false, ErrTypeMismatch
	}
	if len(f.Value) != 1 {
		return false, ErrInvalidLength
	}
	switch f.Value[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("tlv: invalid bool value %d", f.Value[0])
	}
}

// String returns the field value as string.
func (f Field) String() (string, error) {
	if f.Type != TypeString {
		return "", ErrTypeMismatch
	}
	return string(f.Value), nil
}

// Bytes returns the field value as bytes.
func (f Field) Bytes() ([]byte, error) {
	if f.Type != TypeBytes {
		return nil, ErrTypeMismatch
	}
	buf := make([]byte, len(f.Value))
	copy(buf, f.Value)
	return buf, nil
}
