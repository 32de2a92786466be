// Package auth provides minimal credential helpers.
//
// It intentionally avoids policy decisions and storage concerns.
package auth

import (
	"crypto/subtle"
	"errors"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// Secret is a stored credential. Comparison is constant time so a lookup
// never leaks prefix length through timing.
type Secret string

func (s Secret) Matches(candidate string) bool {
	if s == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s), []byte(candidate)) == 1
}

// Verifier checks a presented credential for one principal.
type Verifier interface {
	Verify(principal, credential string) error
}

// FuncVerifier adapts a function into a Verifier.
type FuncVerifier func(principal, credential string) error

func (f FuncVerifier) Verify(principal, credential string) error {
	return f(principal, credential)
}
