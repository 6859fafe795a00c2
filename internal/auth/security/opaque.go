package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// NewSessionID returns an unguessable session id: n random bytes, base64url
// encoded. Callers pass at least 16 (128 bits); the service uses 32.
func NewSessionID(n int) (string, error) {
	if n < 16 {
		n = 16
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewOneTimeToken returns an opaque token and the SHA-256 digest that gets
// persisted in its place. The plaintext token only ever travels to the user.
func NewOneTimeToken(n int) (string, []byte, error) {
	if n <= 0 {
		n = 32
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	return token, HashOneTimeToken(token), nil
}

func HashOneTimeToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

// TokenHashEqual compares a candidate token against a stored digest in
// constant time.
func TokenHashEqual(stored []byte, token string) bool {
	return subtle.ConstantTimeCompare(stored, HashOneTimeToken(token)) == 1
}
