package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/illarion/cipherbox/internal/crypto"
)

// HMAC prints the hex HMAC of data keyed by the vault master key.
func HMAC(algo, rawArg string) {
	data := readValueArg(rawArg)
	defer crypto.ClearBytes(data)

	v := openVault()
	defer v.Close()

	password := unlockPassword(v)
	defer crypto.ClearBytes(password)

	sum, err := v.HMAC(password, algo, data)
	if err != nil {
		HandleError(err)
	}
	fmt.Println(hex.EncodeToString(sum))
}

// Derive prints hex PBKDF2 output for data salted with the vault master key.
func Derive(algo, rawArg string, iterations int) {
	data := readValueArg(rawArg)
	defer crypto.ClearBytes(data)

	v := openVault()
	defer v.Close()

	password := unlockPassword(v)
	defer crypto.ClearBytes(password)

	out, err := v.PBKDF2(password, algo, data, iterations)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(out)
	fmt.Println(hex.EncodeToString(out))
}
