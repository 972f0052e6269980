package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// ResetTokenSize is the entropy of password reset tokens, in bytes.
const ResetTokenSize = 32

// GenerateToken returns size random bytes encoded as unpadded base64url, so
// the result can be dropped into a URL or an email link unchanged.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken is the lookup key stored in place of a bearer secret.
// Deterministic base64url SHA-256, 43 characters.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
