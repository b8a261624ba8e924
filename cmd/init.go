package cmd

import (
	"fmt"

	"github.com/illarion/cipherbox/internal/crypto"
)

// Init creates a new vault in the current directory. Empty cipherID and
// non-positive iterations fall back to the configured values.
func Init(cipherID string, iterations int) {
	v := openVault()
	defer v.Close()

	if cipherID == "" {
		cipherID = settings.Cipher
	}
	if iterations <= 0 {
		iterations = settings.KDFIterations
	}

	password, err := GetPasswordForInit()
	if err != nil {
		Fatalf("%s", err)
	}
	defer crypto.ClearBytes(password)

	if err := v.Init(password, cipherID, iterations); err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Initialized %s (%s, %d iterations)\n", v.FileName(), cipherID, iterations)
}
