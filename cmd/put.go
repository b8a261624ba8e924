package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/illarion/cipherbox/internal/crypto"
	"github.com/illarion/cipherbox/internal/vault"
)

// readValueArg returns the raw value text: the argument itself, or stdin
// when the argument is "-".
func readValueArg(arg string) []byte {
	if arg != "-" {
		return []byte(arg)
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		Fatalf("failed to read value from stdin: %s", err)
	}
	return data
}

// Put stores a value under name.
func Put(ctx context.Context, name, rawArg, typ string) {
	if err := vault.ValidateName(name); err != nil {
		HandleError(err)
	}

	raw := readValueArg(rawArg)
	defer crypto.ClearBytes(raw)

	value, err := parseValue(raw, typ)
	if err != nil {
		Fatalf("%s", err)
	}

	v := openVault()
	defer v.Close()

	password := unlockPassword(v)
	defer crypto.ClearBytes(password)

	if err := v.Put(ctx, password, name, value); err != nil {
		HandleError(err)
	}
	fmt.Fprintf(os.Stderr, "✓ Stored %s\n", name)
}

// Get prints the value stored under name to stdout.
func Get(ctx context.Context, name string) {
	v := openVault()
	defer v.Close()

	password := unlockPassword(v)
	defer crypto.ClearBytes(password)

	val, err := v.Get(ctx, password, name)
	if err != nil {
		HandleError(err)
	}

	out := vault.Render(val)
	defer crypto.ClearBytes(out)
	if _, err := os.Stdout.Write(out); err != nil {
		Fatalf("%s", err)
	}
}
