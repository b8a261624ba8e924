package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/cipherbox/internal/crypto"
)

// Passwd changes the vault password
func Passwd() {
	v := openVault()
	defer v.Close()

	// Get vault ID for keyring lookup
	vaultID, _ := v.VaultID()

	// Get current password with retry on stale keyring
	currentPassword, _, err := GetPasswordWithRetry("Enter current password: ", vaultID, v.VerifyPassword)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(currentPassword)

	if err := v.VerifyPassword(currentPassword); err != nil {
		HandleError(err)
	}

	newPassword, err := ReadPasswordConfirm()
	if err != nil {
		Fatalf("%s", err)
	}
	defer crypto.ClearBytes(newPassword)

	if err := v.ChangePassword(currentPassword, newPassword); err != nil {
		HandleError(err)
	}

	// Keep an existing keyring entry in step with the new password
	if settings.Keyring.Enabled && vaultID != "" && keyStore().HasPassword(vaultID) {
		if err := keyStore().SavePassword(vaultID, newPassword); err == nil {
			fmt.Println("Keyring updated with new password")
		}
	}

	// Compact database after rewriting all data
	if err := v.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}

	fmt.Println("password changed successfully")
}
