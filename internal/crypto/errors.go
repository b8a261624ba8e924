package crypto

import (
	"errors"
	"fmt"

	"github.com/illarion/cipherbox/internal/envelope"
)

var (
	ErrUnsupportedCipher          = errors.New("invalid or unavailable cipher method")
	ErrMalformedCipherID          = errors.New("cipher id has no key size")
	ErrKeyLengthMismatch          = errors.New("key length mismatch")
	ErrUnsupportedKeySizeForRemix = errors.New("cannot remix key of this size")
	ErrIncompleteCiphertext       = errors.New("incomplete encrypted bytes")
	ErrEncryptionFailed           = errors.New("encryption failed")
	ErrDecryptionFailed           = errors.New("decryption failed")
	ErrHMACFailed                 = errors.New("failed to compute HMAC")
	ErrPBKDF2Failed               = errors.New("failed to compute PBKDF2")
	ErrUnsupportedHashAlgo        = errors.New("hash algorithm not available")
	ErrEntropy                    = errors.New("failed to generate PRNG entropy")

	// Envelope failures surface unchanged through Encrypt and Decrypt.
	ErrUnsupportedType = envelope.ErrUnsupportedType
	ErrCorruptEnvelope = envelope.ErrCorruptEnvelope
	ErrTypeIntegrity   = envelope.ErrTypeIntegrity
)

// KeyLengthError reports a key whose length does not match its cipher.
type KeyLengthError struct {
	CipherID string
	Expected int
	Actual   int
}

func (e *KeyLengthError) Error() string {
	return fmt.Sprintf("expected key of %d bytes for cipher %s; got %d bytes", e.Expected, e.CipherID, e.Actual)
}

// Is makes errors.Is(err, ErrKeyLengthMismatch) hold.
func (e *KeyLengthError) Is(target error) bool {
	return target == ErrKeyLengthMismatch
}
