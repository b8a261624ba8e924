// Package crypto provides the keyed cipher at the heart of cipherbox.
//
// A Cipher binds a secret key to a cipher id such as "aes-256-cbc". The key
// length must match the size named in the id. Encrypt wraps a value in an
// envelope (see package envelope), encrypts it under a fresh random IV and
// returns iv || ciphertext:
//   - no magic, version or length prefix
//   - the IV length follows from the cipher id, so the decrypting side must
//     use the same id
//
// DeriveChild remixes the key with PBKDF2 (SHA-256 for 256-bit keys, SHA-1
// for 128-bit keys) into an independent child Cipher, which gives one
// master key any number of per-purpose sub-keys.
//
// The package also exposes HMAC and PBKDF2 bound to the key, secure random
// bytes, and the password KDF used by the vault.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Cipher.Destroy() when a cipher is no longer needed
package crypto
