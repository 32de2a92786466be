package wire

import "errors"

var (
	ErrInvalidMagic         = errors.New("wire: invalid magic")
	ErrUnsupportedVersion   = errors.New("wire: unsupported version")
	ErrShortHeader          = errors.New("wire: short fixed header")
	ErrHeaderLenTooSmall    = errors.New("wire: header_len smaller than fixed header")
	ErrDiscriminatorEmpty   = errors.New("wire: empty discriminator")
	ErrDiscriminatorTooLong = errors.New("wire: discriminator too long")
	ErrPayloadTooLarge      = errors.New("wire: payload too large")
	ErrTruncated            = errors.New("wire: truncated data")
)
