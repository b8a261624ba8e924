package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/cipherbox/internal/crypto"
)

// Diff compares the stored value of name with a candidate value.
func Diff(ctx context.Context, name, rawArg, typ string) {
	raw := readValueArg(rawArg)
	defer crypto.ClearBytes(raw)

	candidate, err := parseValue(raw, typ)
	if err != nil {
		Fatalf("%s", err)
	}

	v := openVault()
	defer v.Close()

	password := unlockPassword(v)
	defer crypto.ClearBytes(password)

	out, err := v.Diff(ctx, password, name, candidate)
	if err != nil {
		HandleError(err)
	}
	if out == "" {
		fmt.Printf("%s: unchanged\n", name)
		return
	}
	fmt.Print(out)
}
