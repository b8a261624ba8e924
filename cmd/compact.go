package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/illarion/cipherbox/internal/vault"
)

// Compact compacts the vault database to reclaim unused space
func Compact(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		HandleError(err)
	}

	v := openVault()
	defer v.Close()

	info, err := os.Stat(v.Path())
	if errors.Is(err, os.ErrNotExist) {
		HandleError(vault.ErrNotInitialized)
	}
	if err != nil {
		HandleError(err)
	}
	sizeBefore := info.Size()

	if err := v.Compact(); err != nil {
		HandleError(err)
	}

	info, err = os.Stat(v.Path())
	if err != nil {
		HandleError(err)
	}
	sizeAfter := info.Size()

	if sizeAfter >= sizeBefore {
		fmt.Printf("Compacted: %s (nothing to reclaim)\n", formatSize(sizeAfter))
		return
	}
	fmt.Printf("Compacted: %s -> %s (%s reclaimed)\n",
		formatSize(sizeBefore), formatSize(sizeAfter), formatSize(sizeBefore-sizeAfter))
}
