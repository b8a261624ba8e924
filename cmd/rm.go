package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/cipherbox/internal/crypto"
)

// Remove removes secrets from the vault
func Remove(ctx context.Context, names []string) {
	if len(names) == 0 {
		fmt.Fprintf(os.Stderr, "Error: rm requires at least one secret name\n")
		fmt.Fprintf(os.Stderr, "Usage: cipherbox rm <name> [name...]\n")
		os.Exit(1)
	}

	v := openVault()
	defer v.Close()

	password := unlockPassword(v)
	defer crypto.ClearBytes(password)

	if err := v.Remove(ctx, password, names...); err != nil {
		HandleError(err)
	}

	for _, name := range names {
		fmt.Printf("✓ Removed %s\n", name)
	}

	// Compact database to reclaim space
	if err := v.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}
}
