// Package storage provides the BBolt database interface for a cipherbox vault.
//
// Database structure uses four buckets:
//   - config: KDF salt and iterations, cipher id, vault id, timestamps (unencrypted)
//   - index: secret names with kind, size and export path (unencrypted, for ls/status)
//   - secrets: framed ciphertext, one key per secret
//   - private: the encrypted password check
//
// Secrets and their index entries are always written in the same
// transaction, so the index never names a secret that is not stored.
//
// bbolt holds an exclusive file lock while a vault is open. Open retries
// with exponential backoff and gives up with ErrLocked.
package storage
