package vault

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 6238 test secret "12345678901234567890".
const rfcSeed = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestTOTP(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()
	at := time.Unix(59, 0)

	require.NoError(t, v.Put(ctx, testPassword, "bare", rfcSeed))
	code, err := v.TOTP(ctx, testPassword, "bare", at)
	require.NoError(t, err)
	assert.Equal(t, "287082", code)

	require.NoError(t, v.Put(ctx, testPassword, "spaced", "gezd gnbv gy3t qojq gezd gnbv gy3t qojq"))
	code, err = v.TOTP(ctx, testPassword, "spaced", at)
	require.NoError(t, err)
	assert.Equal(t, "287082", code)

	url := "otpauth://totp/Example:alice?secret=" + rfcSeed + "&issuer=Example&digits=8"
	require.NoError(t, v.Put(ctx, testPassword, "url", url))
	code, err = v.TOTP(ctx, testPassword, "url", at)
	require.NoError(t, err)
	assert.Equal(t, "94287082", code)
}

func TestTOTP_Rejects(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.Put(ctx, testPassword, "num", 42))
	_, err := v.TOTP(ctx, testPassword, "num", time.Now())
	assert.ErrorIs(t, err, ErrNotOTPSecret)

	require.NoError(t, v.Put(ctx, testPassword, "hotp", "otpauth://hotp/x?secret="+rfcSeed+"&counter=1"))
	_, err = v.TOTP(ctx, testPassword, "hotp", time.Now())
	assert.ErrorIs(t, err, ErrNotOTPSecret)

	require.NoError(t, v.Put(ctx, testPassword, "junk", "not base32!"))
	_, err = v.TOTP(ctx, testPassword, "junk", time.Now())
	assert.ErrorIs(t, err, ErrNotOTPSecret)

	_, err = v.TOTP(ctx, testPassword, "missing", time.Now())
	assert.ErrorIs(t, err, ErrSecretNotFound)
}
