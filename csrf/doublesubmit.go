package csrf

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/MrEthical07/goRisk/internal"
)

// DoubleSubmit issues and compares double-submit cookie tokens.
type DoubleSubmit struct{}

// NewToken returns 32 random bytes, base64url encoded.
func (DoubleSubmit) NewToken() (string, error) {
	return internal.NewNonce()
}

// Validate reports whether the cookie and header values are equal and non-empty.
// Both values are hashed first so the comparison runs over fixed-length
// digests and its timing does not depend on either input's length.
func (DoubleSubmit) Validate(cookieValue, headerValue string) bool {
	if cookieValue == "" || headerValue == "" {
		return false
	}
	a := sha256.Sum256([]byte(cookieValue))
	b := sha256.Sum256([]byte(headerValue))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
