package auth

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/goliatone/go-errors"
)

// saltEntropyBytes is the entropy behind every salt and reset token. 32
// bytes hex-encode to a 64 character string.
const saltEntropyBytes = 32

// NewSaltValue generates the random value that binds a live session to its
// issued tokens.
func NewSaltValue() (string, error) {
	return randomHex(saltEntropyBytes)
}

// NewResetToken generates a password-reset token.
func NewResetToken() (string, error) {
	return randomHex(saltEntropyBytes)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to read random bytes")
	}
	return hex.EncodeToString(buf), nil
}
