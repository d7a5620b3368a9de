// Package storage owns the on-disk vault file.
//
// A vault is a single file:
//
//	"PWVT" | version u16 | vault id [16] | kdf u8 | memory u32 | time u32 |
//	parallelism u8 | salt len u8 | salt | nonce len u8 | nonce | ciphertext || tag
//
// Everything before the ciphertext is the associated data of the AEAD, so
// header tampering fails authentication just like payload tampering. Writes
// go through a temp file in the same directory, fsync and rename.
//
// Next to the vault live two optional files:
//   - <vault>.lock: advisory lock held by the single writer (gofrs/flock)
//   - <vault>.history: BBolt database of previous sealed revisions
//
// The history database uses three buckets:
//   - config: schema version, creation time, owning vault id
//   - index: snapshot metadata (JSON), readable without a passphrase
//   - snapshots: the sealed files themselves
package storage
