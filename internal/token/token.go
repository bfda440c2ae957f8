// internal/token/token.go
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// New issues a per-target capability token: 16 random bytes hex-encoded, so
// 128 bits of entropy in 32 URL-safe characters. Possession of the token is
// the only authentication for recipient-facing pages.
func New() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
