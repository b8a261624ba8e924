// Package vault provides the password-protected secret store behind the
// cipherbox CLI.
//
// Operations:
//   - Init: create a vault file with a password-derived master key
//   - Put/Get/Remove: store, read and delete typed secrets by name
//   - List/Status: inspect the unencrypted index without a password
//   - Diff: compare a stored secret with a candidate value
//   - Export/Import: move secrets to and from files inside the vault directory
//   - ChangePassword: re-encrypt every secret under a new password
//   - TOTP: one-time codes from stored seeds
//
// Each secret is encrypted with its own key, remixed from the master key
// and the secret's name, so equal values under different names never
// share ciphertext or keys.
package vault
