package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/illarion/cipherbox/internal/crypto"
)

// OTP prints the current one-time code for a stored TOTP seed.
func OTP(ctx context.Context, name string) {
	v := openVault()
	defer v.Close()

	password := unlockPassword(v)
	defer crypto.ClearBytes(password)

	code, err := v.TOTP(ctx, password, name, time.Now())
	if err != nil {
		HandleError(err)
	}
	fmt.Println(code)
}
