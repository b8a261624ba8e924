package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize     = 32     // Salt size in bytes
	DefaultIters = 210000 // Default PBKDF2 iterations (OWASP minimum)
)

// KDF turns a vault password into a master key
type KDF struct {
	Salt       []byte
	Iterations int
}

// NewKDF creates a new KDF with a random salt. Non-positive iterations fall
// back to DefaultIters.
func NewKDF(iterations int) (*KDF, error) {
	salt, err := RandomBytes(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if iterations <= 0 {
		iterations = DefaultIters
	}

	return &KDF{
		Salt:       salt,
		Iterations: iterations,
	}, nil
}

// DeriveKey derives a key of keyLen bytes from a password
func (k *KDF) DeriveKey(password []byte, keyLen int) []byte {
	return pbkdf2.Key(password, k.Salt, k.Iterations, keyLen, sha256.New)
}
