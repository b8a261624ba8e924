// Package passwords generates random passwords from printable ASCII.
package passwords

import (
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultLength is used by the CLI when no length is given.
	DefaultLength = 12

	// DefaultMaxAttempts bounds regeneration when character classes are
	// required.
	DefaultMaxAttempts = 64

	first = 33  // '!'
	last  = 126 // '~'
	span  = last - first + 1

	// Bytes at or above this value are rejected so that every character
	// is equally likely.
	rejectAbove = 256 - 256%span
)

var (
	ErrInvalidLength     = errors.New("invalid password length")
	ErrAttemptsExhausted = errors.New("could not satisfy character classes")
)

// Option configures Random.
type Option func(*options)

type options struct {
	classes     int
	maxAttempts int
	random      io.Reader
}

// WithRequiredClasses requires at least n of the four character classes
// (lower, upper, digit, symbol). n is clamped to 0..4.
func WithRequiredClasses(n int) Option {
	return func(o *options) {
		switch {
		case n < 0:
			n = 0
		case n > 4:
			n = 4
		}
		o.classes = n
	}
}

// WithMaxAttempts bounds how many candidates are drawn before giving up.
func WithMaxAttempts(n int) Option {
	return func(o *options) { o.maxAttempts = n }
}

// WithRandom replaces the randomness source.
func WithRandom(r io.Reader) Option {
	return func(o *options) { o.random = r }
}

// Random returns a password of length characters drawn uniformly from
// ASCII 33..126.
func Random(length int, opts ...Option) (string, error) {
	o := options{maxAttempts: DefaultMaxAttempts, random: rand.Reader}
	for _, opt := range opts {
		opt(&o)
	}

	if length < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	if o.classes > length {
		return "", fmt.Errorf("%w: %d characters cannot hold %d classes", ErrInvalidLength, length, o.classes)
	}
	if o.maxAttempts < 1 {
		o.maxAttempts = 1
	}

	r := bufio.NewReader(o.random)
	for attempt := 0; attempt < o.maxAttempts; attempt++ {
		pw, err := draw(r, length)
		if err != nil {
			return "", err
		}
		if Classes(pw) >= o.classes {
			return string(pw), nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, o.maxAttempts)
}

func draw(r io.ByteReader, length int) ([]byte, error) {
	pw := make([]byte, 0, length)
	for len(pw) < length {
		b, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("failed to read random bytes: %w", err)
		}
		if int(b) >= rejectAbove {
			continue
		}
		pw = append(pw, byte(first+int(b)%span))
	}
	return pw, nil
}

// Classes counts how many of lower, upper, digit and symbol appear in pw.
func Classes(pw []byte) int {
	var lower, upper, digit, symbol bool
	for _, c := range pw {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		default:
			symbol = true
		}
	}

	n := 0
	for _, ok := range []bool{lower, upper, digit, symbol} {
		if ok {
			n++
		}
	}
	return n
}
