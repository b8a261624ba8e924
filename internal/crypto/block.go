package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

// Padding selects how CBC fills the final block. Stream modes never pad.
type Padding int

const (
	// PaddingPKCS7 is the cipher's standard padding.
	PaddingPKCS7 Padding = iota
	// PaddingZero fills the final block with zero bytes. Decryption strips
	// trailing zeros, so it is only safe for plaintexts that never end in
	// a zero byte, which holds for serialized envelopes.
	PaddingZero
)

var (
	errBadPadding   = errors.New("bad padding")
	errBadBlockSize = errors.New("ciphertext is not a multiple of the block size")
)

func paddingFor(zero bool) Padding {
	if zero {
		return PaddingZero
	}
	return PaddingPKCS7
}

// blockEncrypt is the raw primitive behind Cipher.Encrypt.
func blockEncrypt(id string, key, iv, plaintext []byte, padding Padding) ([]byte, error) {
	spec, ok := cipherSpecs[id]
	if !ok {
		return nil, ErrUnsupportedCipher
	}
	if len(iv) != spec.ivLength {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", spec.ivLength, len(iv))
	}

	if spec.mode == modeChaCha20 {
		return chachaXOR(key, iv, plaintext)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	switch spec.mode {
	case modeCBC:
		var padded []byte
		if padding == PaddingZero {
			padded = zeroPad(plaintext, block.BlockSize())
		} else {
			padded = pkcs7Pad(plaintext, block.BlockSize())
		}
		out := make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
		return out, nil
	case modeCTR:
		return xorStream(cipher.NewCTR(block, iv), plaintext), nil
	case modeCFB:
		return xorStream(cipher.NewCFBEncrypter(block, iv), plaintext), nil //nolint:staticcheck // kept for interoperability
	case modeOFB:
		return xorStream(cipher.NewOFB(block, iv), plaintext), nil //nolint:staticcheck // kept for interoperability
	}
	return nil, ErrUnsupportedCipher
}

// blockDecrypt is the raw primitive behind Cipher.Decrypt.
func blockDecrypt(id string, key, iv, ciphertext []byte, padding Padding) ([]byte, error) {
	spec, ok := cipherSpecs[id]
	if !ok {
		return nil, ErrUnsupportedCipher
	}
	if len(iv) != spec.ivLength {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", spec.ivLength, len(iv))
	}

	if spec.mode == modeChaCha20 {
		return chachaXOR(key, iv, ciphertext)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	switch spec.mode {
	case modeCBC:
		bs := block.BlockSize()
		if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
			return nil, errBadBlockSize
		}
		out := make([]byte, len(ciphertext))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
		if padding == PaddingZero {
			return zeroUnpad(out), nil
		}
		return pkcs7Unpad(out, bs)
	case modeCTR:
		return xorStream(cipher.NewCTR(block, iv), ciphertext), nil
	case modeCFB:
		return xorStream(cipher.NewCFBDecrypter(block, iv), ciphertext), nil //nolint:staticcheck // kept for interoperability
	case modeOFB:
		return xorStream(cipher.NewOFB(block, iv), ciphertext), nil //nolint:staticcheck // kept for interoperability
	}
	return nil, ErrUnsupportedCipher
}

func xorStream(s cipher.Stream, in []byte) []byte {
	out := make([]byte, len(in))
	s.XORKeyStream(out, in)
	return out
}

func chachaXOR(key, iv, in []byte) ([]byte, error) {
	c, err := chacha20.NewUnauthenticatedCipher(key, iv[4:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	c.SetCounter(binary.LittleEndian.Uint32(iv[:4]))
	out := make([]byte, len(in))
	c.XORKeyStream(out, in)
	return out, nil
}

func pkcs7Pad(b []byte, bs int) []byte {
	n := bs - len(b)%bs
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, bs int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > bs || n > len(b) {
		return nil, errBadPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errBadPadding
		}
	}
	return b[:len(b)-n], nil
}

func zeroPad(b []byte, bs int) []byte {
	n := (bs - len(b)%bs) % bs
	out := make([]byte, len(b)+n)
	copy(out, b)
	return out
}

func zeroUnpad(b []byte) []byte {
	return bytes.TrimRight(b, "\x00")
}
