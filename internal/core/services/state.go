package services

import (
	"crypto/rand"
	"encoding/base64"
)

// State token length in bytes. 32 bytes gives 256 bits of entropy, well
// beyond the 128-bit minimum for an unguessable anti-CSRF nonce.
const stateLength = 32

// generateState creates a random state parameter for CSRF protection.
func generateState() (string, error) {
	bytes := make([]byte, stateLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
