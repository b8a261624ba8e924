package cmd

import (
	"fmt"

	"github.com/illarion/cipherbox/internal/crypto"
)

// KeyringSave saves the password to the OS keyring
func KeyringSave() {
	v := openVault()
	defer v.Close()

	password, err := GetPassword("Enter password: ")
	if err != nil {
		Fatalf("%s", err)
	}
	defer crypto.ClearBytes(password)

	if err := v.VerifyPassword(password); err != nil {
		HandleError(err)
	}

	vaultID, err := v.GetOrCreateVaultID()
	if err != nil {
		HandleError(err)
	}

	if err := keyStore().SavePassword(vaultID, password); err != nil {
		Fatalf("failed to save to keyring: %s", err)
	}

	fmt.Println("Password saved to keyring")
}

// KeyringDelete removes the password from the OS keyring
func KeyringDelete() {
	v := openVault()
	defer v.Close()

	vaultID, err := v.VaultID()
	if err != nil || vaultID == "" {
		fmt.Println("No password stored in keyring")
		return
	}

	if err := keyStore().DeletePassword(vaultID); err != nil {
		fmt.Println("No password stored in keyring")
		return
	}

	fmt.Println("Password removed from keyring")
}

// KeyringStatus checks if a password is stored in the keyring
func KeyringStatus() {
	v := openVault()
	defer v.Close()

	vaultID, err := v.VaultID()
	if err != nil || vaultID == "" {
		fmt.Println("Password: not stored")
		return
	}

	if keyStore().HasPassword(vaultID) {
		fmt.Println("Password: stored in keyring")
	} else {
		fmt.Println("Password: not stored")
	}
	if !settings.Keyring.Enabled {
		fmt.Println("Keyring lookups are disabled in config")
	}
}
