package crypto

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var keyBitsPattern = regexp.MustCompile(`-[0-9]+-`)

// Config binds a secret key to a cipher id. It is validated once and never
// changes afterwards.
type Config struct {
	cipherID string
	key      []byte
	ivLength int
}

// NewConfig validates key against cipherID. An empty cipherID selects
// DefaultCipher. The key is copied.
func NewConfig(key []byte, cipherID string) (*Config, error) {
	if cipherID == "" {
		cipherID = DefaultCipher
	}
	if !IsSupportedCipher(cipherID) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCipher, cipherID)
	}

	required, err := KeySize(cipherID)
	if err != nil {
		return nil, err
	}
	if len(key) != required {
		return nil, &KeyLengthError{CipherID: cipherID, Expected: required, Actual: len(key)}
	}

	return &Config{
		cipherID: cipherID,
		key:      append([]byte(nil), key...),
		ivLength: IVLength(cipherID),
	}, nil
}

// KeySize returns the key length in bytes implied by the "-<bits>-" token
// of a cipher id.
func KeySize(cipherID string) (int, error) {
	match := keyBitsPattern.FindString(cipherID)
	if match == "" {
		return 0, fmt.Errorf("%w: %q", ErrMalformedCipherID, cipherID)
	}
	bits, err := strconv.Atoi(strings.Trim(match, "-"))
	if err != nil || bits <= 0 || bits%8 != 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedCipherID, cipherID)
	}
	return bits / 8, nil
}

// CipherID returns the configured cipher id.
func (c *Config) CipherID() string { return c.cipherID }

// IVLength returns the IV length of the configured cipher.
func (c *Config) IVLength() int { return c.ivLength }

// KeyBits returns the key size in bits.
func (c *Config) KeyBits() int { return len(c.key) * 8 }
