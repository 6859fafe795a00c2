package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params are fixed process-wide from configuration; digests embed the
// parameters they were produced with, so old hashes stay verifiable after a
// cost bump.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

func DefaultParams() Argon2Params {
	return Argon2Params{
		Time:    3,
		Memory:  64 * 1024,
		Threads: 2,
		KeyLen:  32,
		SaltLen: 16,
	}
}

type PasswordHasher struct {
	params Argon2Params

	// dummy is verified against when the email lookup misses, so a login
	// for an unknown address costs the same as one for a known address.
	dummy string
}

func NewPasswordHasher(params Argon2Params) (*PasswordHasher, error) {
	if params.KeyLen == 0 {
		params.KeyLen = 32
	}
	if params.SaltLen == 0 {
		params.SaltLen = 16
	}
	h := &PasswordHasher{params: params}

	dummy, err := h.Hash("safrareport-dummy-credential")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy digest: %w", err)
	}
	h.dummy = dummy

	return h, nil
}

// Hash produces an argon2id digest with a fresh random salt; two calls with
// the same input never return the same digest.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	encoded := base64.RawStdEncoding.EncodeToString(hash)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)

	return fmt.Sprintf("$argon2id$v=19$t=%d,m=%d,p=%d$%s$%s",
		h.params.Time, h.params.Memory, h.params.Threads, encodedSalt, encoded), nil
}

// Verify reports whether password matches the encoded digest. Malformed
// digests verify false rather than erroring, so callers need no special
// handling on the failure path.
func (h *PasswordHasher) Verify(encodedHash, password string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}

	var (
		time    uint32
		memory  uint32
		threads uint8
	)
	if _, err := fmt.Sscanf(parts[3], "t=%d,m=%d,p=%d", &time, &memory, &threads); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))

	return subtle.ConstantTimeCompare(hash, computed) == 1
}

// VerifyDummy burns the same argon2 work as a real verification and always
// fails. Used when the account lookup misses.
func (h *PasswordHasher) VerifyDummy(password string) bool {
	h.Verify(h.dummy, password)
	return false
}
