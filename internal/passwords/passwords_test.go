package passwords

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constReader byte

func (c constReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(c)
	}
	return len(p), nil
}

func TestRandom_Charset(t *testing.T) {
	for _, length := range []int{0, 1, 12, 200} {
		pw, err := Random(length)
		require.NoError(t, err)
		assert.Len(t, pw, length)
		for _, c := range []byte(pw) {
			assert.True(t, c >= 33 && c <= 126, "character %d out of range", c)
		}
	}
}

func TestRandom_Unique(t *testing.T) {
	a, err := Random(32)
	require.NoError(t, err)
	b, err := Random(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRandom_InvalidLength(t *testing.T) {
	_, err := Random(-1)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = Random(3, WithRequiredClasses(4))
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestRandom_RequiredClasses(t *testing.T) {
	pw, err := Random(16, WithRequiredClasses(4), WithMaxAttempts(1000))
	require.NoError(t, err)
	assert.Equal(t, 4, Classes([]byte(pw)))
}

func TestRandom_AttemptsExhausted(t *testing.T) {
	// Zero bytes always map to '!', a single class.
	_, err := Random(8, WithRequiredClasses(2), WithMaxAttempts(3), WithRandom(constReader(0)))
	assert.ErrorIs(t, err, ErrAttemptsExhausted)

	pw, err := Random(8, WithRequiredClasses(1), WithRandom(constReader(0)))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("!", 8), pw)
}

func TestRandom_RejectsBiasedBytes(t *testing.T) {
	// 200 is rejected, 1 maps to '"'.
	src := io.MultiReader(bytes.NewReader([]byte{200, 255, 188}), constReader(1))
	pw, err := Random(4, WithRandom(src))
	require.NoError(t, err)
	assert.Equal(t, `""""`, pw)
}

func TestRandom_ReaderFailure(t *testing.T) {
	_, err := Random(8, WithRandom(io.MultiReader()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestClasses(t *testing.T) {
	cases := map[string]int{
		"":       0,
		"abc":    1,
		"aB":     2,
		"aB3":    3,
		"aB3$":   4,
		"!!!!":   1,
		"123456": 1,
	}
	for in, want := range cases {
		assert.Equal(t, want, Classes([]byte(in)), in)
	}
}
