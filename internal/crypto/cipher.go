package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/crypto/pbkdf2"

	"github.com/illarion/cipherbox/internal/envelope"
)

// Cipher encrypts envelope-wrapped values with one keyed cipher config.
// It holds no mutable state and is safe for concurrent use.
type Cipher struct {
	cfg      *Config
	registry *envelope.Registry
	base     *zap.Logger
	logger   *zap.Logger
	random   io.Reader
}

// Option configures a Cipher.
type Option func(*options)

type options struct {
	cipherID string
	registry *envelope.Registry
	logger   *zap.Logger
	random   io.Reader
}

// WithCipher selects the cipher id used by New. It has no effect on
// NewWithConfig.
func WithCipher(id string) Option {
	return func(o *options) { o.cipherID = id }
}

// WithRegistry resolves caller-supplied composites during decryption.
func WithRegistry(r *envelope.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithLogger sets the debug logger. Key material is never logged.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRandom replaces the IV source. Intended for tests.
func WithRandom(r io.Reader) Option {
	return func(o *options) { o.random = r }
}

func buildOptions(opts []Option) options {
	o := options{cipherID: DefaultCipher}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.random == nil {
		o.random = rand.Reader
	}
	return o
}

// New creates a Cipher from a raw key. The cipher id defaults to
// DefaultCipher and can be changed with WithCipher.
func New(key []byte, opts ...Option) (*Cipher, error) {
	o := buildOptions(opts)
	cfg, err := NewConfig(key, o.cipherID)
	if err != nil {
		return nil, err
	}
	return newCipher(cfg, o), nil
}

// NewWithConfig creates a Cipher from an already validated config. The
// cipher holds its own copy of the key, so cfg stays usable after Destroy.
func NewWithConfig(cfg *Config, opts ...Option) (*Cipher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil cipher config")
	}
	own := *cfg
	own.key = append([]byte(nil), cfg.key...)
	return newCipher(&own, buildOptions(opts)), nil
}

func newCipher(cfg *Config, o options) *Cipher {
	c := &Cipher{
		cfg:      cfg,
		registry: o.registry,
		base:     o.logger,
		logger:   o.logger.With(zap.String("cipher", cfg.cipherID)),
		random:   o.random,
	}
	c.logger.Debug("cipher ready", zap.Int("key_bits", cfg.KeyBits()))
	return c
}

// Config returns a copy of the cipher's configuration.
func (c *Cipher) Config() *Config {
	cfg := *c.cfg
	cfg.key = append([]byte(nil), c.cfg.key...)
	return &cfg
}

// String describes the cipher without revealing the key.
func (c *Cipher) String() string {
	return fmt.Sprintf("%s (%d-bit secret key)", c.cfg.cipherID, c.cfg.KeyBits())
}

// remixAlgo picks the PBKDF2 digest for remixing from the key length.
func (c *Cipher) remixAlgo() (string, error) {
	switch len(c.cfg.key) {
	case 32:
		return "sha256", nil
	case 16:
		return "sha1", nil
	}
	return "", fmt.Errorf("%w: %d-bit secret key", ErrUnsupportedKeySizeForRemix, c.cfg.KeyBits())
}

// RemixKey deterministically derives child key material from this
// cipher's key and phrase. Iterations below 1 count as 1.
func (c *Cipher) RemixKey(phrase []byte, iterations int) ([]byte, error) {
	algo, err := c.remixAlgo()
	if err != nil {
		return nil, err
	}
	if iterations < 1 {
		iterations = 1
	}
	return c.PBKDF2(algo, phrase, iterations)
}

// DeriveChild returns an independent Cipher keyed with RemixKey(phrase,
// iterations). The child always uses DefaultCipher, whatever the parent
// uses; a 128-bit parent therefore fails with ErrKeyLengthMismatch, since
// its SHA-1 remix is 160 bits long.
func (c *Cipher) DeriveChild(phrase []byte, iterations int) (*Cipher, error) {
	key, err := c.RemixKey(phrase, iterations)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(key)

	child, err := New(key,
		WithCipher(DefaultCipher),
		WithRegistry(c.registry),
		WithLogger(c.base),
		WithRandom(c.random),
	)
	if err != nil {
		c.logger.Debug("child derivation failed", zap.Error(err))
		return nil, err
	}
	return child, nil
}

// Encrypt wraps v in an envelope and encrypts it under a fresh random IV.
// The result is iv || ciphertext.
func (c *Cipher) Encrypt(v any, zeroPadding bool) ([]byte, error) {
	plaintext, err := envelope.Seal(v)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(plaintext)

	iv, err := readRandom(c.random, c.cfg.ivLength)
	if err != nil {
		return nil, err
	}

	ciphertext, err := blockEncrypt(c.cfg.cipherID, c.cfg.key, iv, plaintext, paddingFor(zeroPadding))
	if err != nil {
		c.logger.Debug("encrypt failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	framed := make([]byte, len(iv)+len(ciphertext))
	copy(framed, iv)
	copy(framed[len(iv):], ciphertext)
	return framed, nil
}

// Decrypt reverses Encrypt. The zeroPadding flag must match the one used
// for encryption.
func (c *Cipher) Decrypt(framed []byte, zeroPadding bool) (envelope.Value, error) {
	if len(framed) <= c.cfg.ivLength {
		return envelope.Value{}, fmt.Errorf("%w: %d bytes, iv alone is %d", ErrIncompleteCiphertext, len(framed), c.cfg.ivLength)
	}
	iv, ciphertext := framed[:c.cfg.ivLength], framed[c.cfg.ivLength:]

	plaintext, err := blockDecrypt(c.cfg.cipherID, c.cfg.key, iv, ciphertext, paddingFor(zeroPadding))
	if err != nil {
		c.logger.Debug("decrypt failed", zap.Error(err))
		return envelope.Value{}, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	defer ClearBytes(plaintext)

	return envelope.Open(plaintext, c.registry)
}

// HMAC computes the keyed digest of data with this cipher's key.
func (c *Cipher) HMAC(algo string, data []byte) ([]byte, error) {
	if _, err := newHash(algo); err != nil {
		if err == ErrUnsupportedHashAlgo {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedHashAlgo, algo)
		}
		return nil, fmt.Errorf("%w: %v", ErrHMACFailed, err)
	}

	mac := hmac.New(hashConstructor(algo), c.cfg.key)
	mac.Write(data)
	sum := mac.Sum(nil)
	if len(sum) == 0 {
		return nil, ErrHMACFailed
	}
	return sum, nil
}

// PBKDF2 derives bytes from data using this cipher's key as salt. The
// output length is the digest's natural size.
func (c *Cipher) PBKDF2(algo string, data []byte, iterations int) ([]byte, error) {
	h, err := newHash(algo)
	if err != nil {
		if err == ErrUnsupportedHashAlgo {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedHashAlgo, algo)
		}
		return nil, fmt.Errorf("%w: %v", ErrPBKDF2Failed, err)
	}
	if iterations < 1 {
		return nil, fmt.Errorf("%w: iterations must be positive, got %d", ErrPBKDF2Failed, iterations)
	}

	return pbkdf2.Key(data, c.cfg.key, iterations, h.Size(), hashConstructor(algo)), nil
}

// Destroy clears the key from memory. The Cipher must not be used
// afterwards.
func (c *Cipher) Destroy() {
	ClearBytes(c.cfg.key)
}
