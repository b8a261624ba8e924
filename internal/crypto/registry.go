package crypto

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"sort"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

// DefaultCipher is used when no cipher id is given.
const DefaultCipher = "aes-256-cbc"

type blockMode int

const (
	modeCBC blockMode = iota
	modeCTR
	modeCFB
	modeOFB
	modeChaCha20
)

// cipherSpec describes what the primitive layer can do with a cipher id.
// Key size is deliberately absent: it is read from the id itself.
type cipherSpec struct {
	mode     blockMode
	ivLength int
}

var cipherSpecs = map[string]cipherSpec{
	"aes-128-cbc": {mode: modeCBC, ivLength: 16},
	"aes-192-cbc": {mode: modeCBC, ivLength: 16},
	"aes-256-cbc": {mode: modeCBC, ivLength: 16},
	"aes-128-ctr": {mode: modeCTR, ivLength: 16},
	"aes-192-ctr": {mode: modeCTR, ivLength: 16},
	"aes-256-ctr": {mode: modeCTR, ivLength: 16},
	"aes-128-cfb": {mode: modeCFB, ivLength: 16},
	"aes-192-cfb": {mode: modeCFB, ivLength: 16},
	"aes-256-cfb": {mode: modeCFB, ivLength: 16},
	"aes-128-ofb": {mode: modeOFB, ivLength: 16},
	"aes-192-ofb": {mode: modeOFB, ivLength: 16},
	"aes-256-ofb": {mode: modeOFB, ivLength: 16},
	// 4-byte little-endian counter followed by a 12-byte nonce.
	"chacha20": {mode: modeChaCha20, ivLength: 16},
}

// SupportedCiphers lists every cipher id the primitive layer implements.
// A listed id may still be refused by NewConfig if it carries no key size.
func SupportedCiphers() []string {
	ids := make([]string, 0, len(cipherSpecs))
	for id := range cipherSpecs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsSupportedCipher reports whether id is implemented.
func IsSupportedCipher(id string) bool {
	_, ok := cipherSpecs[id]
	return ok
}

// IVLength returns the IV length for a cipher id, or -1 if unsupported.
func IVLength(id string) int {
	if spec, ok := cipherSpecs[id]; ok {
		return spec.ivLength
	}
	return -1
}

type hashFunc func() (hash.Hash, error)

func plain(f func() hash.Hash) hashFunc {
	return func() (hash.Hash, error) { return f(), nil }
}

var hashAlgos = map[string]hashFunc{
	"md4":         plain(md4.New),
	"md5":         plain(md5.New),
	"sha1":        plain(sha1.New),
	"sha224":      plain(sha256.New224),
	"sha256":      plain(sha256.New),
	"sha384":      plain(sha512.New384),
	"sha512":      plain(sha512.New),
	"sha512/224":  plain(sha512.New512_224),
	"sha512/256":  plain(sha512.New512_256),
	"sha3-224":    plain(sha3.New224),
	"sha3-256":    plain(sha3.New256),
	"sha3-384":    plain(sha3.New384),
	"sha3-512":    plain(sha3.New512),
	"ripemd160":   plain(ripemd160.New),
	"blake2b-256": func() (hash.Hash, error) { return blake2b.New256(nil) },
	"blake2b-384": func() (hash.Hash, error) { return blake2b.New384(nil) },
	"blake2b-512": func() (hash.Hash, error) { return blake2b.New512(nil) },
	"blake2s-256": func() (hash.Hash, error) { return blake2s.New256(nil) },
}

// SupportedHashAlgos lists the digest names accepted by HMAC and PBKDF2.
func SupportedHashAlgos() []string {
	names := make([]string, 0, len(hashAlgos))
	for name := range hashAlgos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DigestSize returns the natural output length of a hash algorithm.
func DigestSize(algo string) (int, error) {
	h, err := newHash(algo)
	if err != nil {
		return 0, err
	}
	return h.Size(), nil
}

func newHash(algo string) (hash.Hash, error) {
	f, ok := hashAlgos[algo]
	if !ok {
		return nil, ErrUnsupportedHashAlgo
	}
	return f()
}

// hashConstructor adapts a registered hash for APIs that take a plain
// constructor. The algorithm must already have been probed with newHash.
func hashConstructor(algo string) func() hash.Hash {
	f := hashAlgos[algo]
	return func() hash.Hash {
		h, _ := f()
		return h
	}
}
