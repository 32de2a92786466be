package d2d

// StatusCode is the enumerated outcome carried by every reply. Codes compare
// by value; an unknown wire value maps to StatusUnknown rather than failing
// the decode.
type StatusCode uint32

const (
	StatusOK            StatusCode = 0
	StatusBadRequest    StatusCode = 1
	StatusUnauthorized  StatusCode = 2
	StatusForbidden     StatusCode = 3
	StatusNotFound      StatusCode = 4
	StatusConflict      StatusCode = 5
	StatusUnavailable   StatusCode = 6
	StatusInternalError StatusCode = 7
	StatusTimeout       StatusCode = 8
	StatusNoPermission  StatusCode = 9

	StatusUnknown StatusCode = 255
)

var statusNames = map[StatusCode]string{
	StatusOK:            "OK",
	StatusBadRequest:    "BAD_REQUEST",
	StatusUnauthorized:  "UNAUTHORIZED",
	StatusForbidden:     "FORBIDDEN",
	StatusNotFound:      "NOT_FOUND",
	StatusConflict:      "CONFLICT",
	StatusUnavailable:   "UNAVAILABLE",
	StatusInternalError: "INTERNAL_ERROR",
	StatusTimeout:       "TIMEOUT",
	StatusNoPermission:  "NO_PERMISSION",
	StatusUnknown:       "UNKNOWN",
}

func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// StatusFromWire maps a raw wire value onto the closed enumeration.
func StatusFromWire(v uint32) StatusCode {
	s := StatusCode(v)
	if _, ok := statusNames[s]; ok {
		return s
	}
	return StatusUnknown
}

// OK reports whether the status permits the caller to read the payload.
func (s StatusCode) OK() bool {
	return s == StatusOK
}
