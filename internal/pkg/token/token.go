package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// VerificationBytes is the token entropy: 128 bits, well above what can be
// guessed within a verification window.
const VerificationBytes = 16

// NewVerificationToken generates a cryptographically random 32-character hex token.
func NewVerificationToken() (string, error) {
	b := make([]byte, VerificationBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
