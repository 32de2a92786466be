package d2d

import (
	"errors"
	"fmt"
	"strings"

	"github.com/foldlink/foldlink/internal/wire/tlv"
)

var ErrMissingReplyStatus = errors.New("d2d: reply missing status code")

// Message is one typed D2D wire message.
type Message interface {
	// WireName is the discriminator stamped on the envelope.
	WireName() string
	// Fields encodes the message into its top-level TLV fields. Unset
	// optional fields are omitted, never written as zero values.
	Fields() ([]tlv.Field, error)
	// ApplyFields populates the message from decoded fields, best effort:
	// malformed nested values are dropped, the rest still populate.
	ApplyFields(fields []tlv.Field) error
}

// Request is a correlated client-to-server message. Requests are built once,
// validated on the receiving side, and never mutated after transmission.
type Request interface {
	Message
	RequestCode() string
	NodeEvent() NodeEvent
	// Validate is the precondition gate: pure, no I/O, composes the base
	// checks with per-type required fields.
	Validate() error
}

// Reply is the correlated response to a request. Its reply code always
// echoes the originating request code verbatim.
type Reply interface {
	Message
	ReplyCode() string
	Status() StatusCode
}

// Notification is a fire-and-forget message carrying no correlation code.
type Notification interface {
	Message
	notification()
}

// ValidationError reports a structurally incomplete message.
type ValidationError struct {
	WireName string
	Field    string
	Reason   string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("d2d: %s: %s", e.WireName, e.Reason)
	}
	return fmt.Sprintf("d2d: %s field %s: %s", e.WireName, e.Field, e.Reason)
}

// RequestBase carries the fields every request shares. Concrete requests
// embed it instead of inheriting through a class hierarchy.
type RequestBase struct {
	Code string
}

func (b *RequestBase) RequestCode() string { return b.Code }

func (b *RequestBase) baseFields() []tlv.Field {
	var fields []tlv.Field
	if b.Code != "" {
		fields = append(fields, tlv.NewString(FieldRequestCode, b.Code))
	}
	return fields
}

func (b *RequestBase) applyBase(fields []tlv.Field) {
	b.Code = stringField(fields, FieldRequestCode)
}

func (b *RequestBase) validateBase(wireName string) error {
	if strings.TrimSpace(b.Code) == "" {
		return ValidationError{WireName: wireName, Field: "request_code", Reason: "missing"}
	}
	return nil
}

// ReplyBase carries the fields every reply shares.
type ReplyBase struct {
	Code       string
	StatusCode StatusCode
}

func (b *ReplyBase) ReplyCode() string  { return b.Code }
func (b *ReplyBase) Status() StatusCode { return b.StatusCode }

func (b *ReplyBase) setReplyCode(code string) { b.Code = code }

// StampReplyCode overwrites the reply code so it echoes the request code
// verbatim, whatever the handler left in it.
func StampReplyCode(reply Reply, code string) {
	if s, ok := reply.(interface{ setReplyCode(string) }); ok {
		s.setReplyCode(code)
	}
}

func (b *ReplyBase) baseFields() []tlv.Field {
	var fields []tlv.Field
	if b.Code != "" {
		fields = append(fields, tlv.NewString(FieldReplyCode, b.Code))
	}
	fields = append(fields, tlv.NewUint32(FieldReplyStatus, uint32(b.StatusCode)))
	return fields
}

func (b *ReplyBase) applyBase(fields []tlv.Field) {
	b.Code = stringField(fields, FieldReplyCode)
	b.StatusCode = StatusUnknown
	if f, ok := tlv.Get(fields, FieldReplyStatus); ok {
		if v, err := f.Uint32(); err == nil {
			b.StatusCode = StatusFromWire(v)
		}
	}
}
