package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

// ErrNotOTPSecret is returned when a secret cannot seed a one-time code.
var ErrNotOTPSecret = errors.New("secret is not a TOTP seed")

// totpOpts resolves the generator settings for a stored seed: either an
// otpauth:// URL or a bare base32 secret with the usual 30s/6-digit/SHA1
// defaults.
func totpOpts(seed string) (string, totp.ValidateOpts, error) {
	seed = strings.TrimSpace(seed)
	opts := totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
	if !strings.HasPrefix(seed, "otpauth://") {
		return strings.ToUpper(strings.ReplaceAll(seed, " ", "")), opts, nil
	}

	key, err := otp.NewKeyFromURL(seed)
	if err != nil {
		return "", opts, fmt.Errorf("%w: %v", ErrNotOTPSecret, err)
	}
	if key.Type() != "totp" {
		return "", opts, fmt.Errorf("%w: %s keys are not supported", ErrNotOTPSecret, key.Type())
	}
	if p := key.Period(); p > 0 {
		opts.Period = uint(p)
	}
	opts.Digits = key.Digits()
	opts.Algorithm = key.Algorithm()
	return key.Secret(), opts, nil
}

// TOTP returns the time-based one-time code for the seed stored under
// name, at time at.
func (v *Vault) TOTP(ctx context.Context, password []byte, name string, at time.Time) (string, error) {
	val, err := v.Get(ctx, password, name)
	if err != nil {
		return "", err
	}
	seed, ok := val.AsString()
	if !ok {
		return "", fmt.Errorf("%w: %s holds a %s", ErrNotOTPSecret, name, describe(val))
	}

	secret, opts, err := totpOpts(seed)
	if err != nil {
		return "", err
	}
	code, err := totp.GenerateCodeCustom(secret, at, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotOTPSecret, err)
	}

	v.logger.Debug("totp generated", zap.String("name", name))
	return code, nil
}
