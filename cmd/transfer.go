package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/cipherbox/internal/crypto"
)

// Export writes a decrypted secret to a file inside the vault directory.
// An empty path uses the secret name.
func Export(ctx context.Context, name, path string) {
	if path == "" {
		path = name
	}

	v := openVault()
	defer v.Close()

	password := unlockPassword(v)
	defer crypto.ClearBytes(password)

	written, err := v.Export(ctx, password, name, path)
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("✓ Exported %s to %s\n", name, written)
	fmt.Println("  Remember to keep it out of version control")
}

// Import stores the contents of a file as a string secret.
func Import(ctx context.Context, name, path string) {
	v := openVault()
	defer v.Close()

	password := unlockPassword(v)
	defer crypto.ClearBytes(password)

	if err := v.Import(ctx, password, name, path); err != nil {
		HandleError(err)
	}
	fmt.Printf("✓ Imported %s from %s\n", name, path)
}
