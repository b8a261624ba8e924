package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/illarion/cipherbox/internal/git"
	"github.com/illarion/cipherbox/internal/vault"
)

// Ls lists secret names, one per line (no password required).
func Ls(ctx context.Context) {
	v := openVault()
	defer v.Close()

	entries, err := v.List(ctx)
	if err != nil {
		HandleError(err)
	}
	for _, e := range entries {
		fmt.Println(e.Name)
	}
}

// Status shows the current state of the vault (no password required).
func Status(ctx context.Context) {
	v := openVault()
	defer v.Close()

	status, err := v.Status(ctx)
	if errors.Is(err, vault.ErrNotInitialized) {
		fmt.Printf("No %s vault found in current directory\n", v.FileName())
		fmt.Println("Run 'cipherbox init' to create one")
		return
	}
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Vault:      %s\n", status.Path)
	fmt.Printf("Cipher:     %s\n", status.Cipher)
	fmt.Printf("KDF:        PBKDF2-SHA256, %d iterations\n", status.KDFIterations)
	fmt.Printf("Remix:      %d iterations per secret\n", status.RemixIterations)
	if !status.Created.IsZero() {
		fmt.Printf("Created:    %s\n", status.Created.Format(time.RFC3339))
	}
	if !status.Modified.IsZero() {
		fmt.Printf("Modified:   %s\n", status.Modified.Format(time.RFC3339))
	}
	if status.VaultID != "" {
		fmt.Printf("Vault ID:   %s\n", status.VaultID)
		if settings.Keyring.Enabled && keyStore().HasPassword(status.VaultID) {
			fmt.Println("Keyring:    password stored")
		}
	}

	fmt.Printf("\nSecrets (%d, %s):\n", len(status.Secrets), formatSize(int64(status.TotalSize)))
	if len(status.Secrets) == 0 {
		fmt.Println("  (none)")
	}
	for _, e := range status.Secrets {
		kind := e.Kind
		if e.Shape != "" {
			kind = e.Shape
		}
		line := fmt.Sprintf("  %-24s %-8s %10s  %s", e.Name, kind, formatSize(int64(e.Size)), e.Updated.Format(time.RFC3339))
		if e.ExportPath != "" {
			line += "  -> " + e.ExportPath
		}
		fmt.Println(line)
	}

	if status.GitStatus != nil {
		fmt.Println()
		fmt.Print(git.FormatGitStatus(status.GitStatus))
	}

	if len(status.Exported) > 0 {
		fmt.Fprintf(os.Stderr, "\nwarning: %d secret(s) exist as plaintext files\n", len(status.Exported))
	}
}
