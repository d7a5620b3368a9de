// Package crypto provides the cryptographic primitives used by pwvault.
//
// Encryption uses XChaCha20-Poly1305 with:
//   - 32-byte key derived from the master passphrase
//   - 24-byte random nonce generated for every save
//   - Associated data binding the unencrypted vault header to the ciphertext
//
// Key derivation uses Argon2id by default with:
//   - 32-byte random salt (stored unencrypted in the vault header)
//   - memory, time and parallelism costs stored per vault
//   - a safety floor enforced by KDFParams.Validate
//
// PBKDF2-HMAC-SHA256 is still accepted for vaults created with an
// iteration-count profile.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Keep long-lived keys in a SecureKey and call Destroy() on lock
package crypto
