// Package core provides the in-memory vault session.
//
// A Session moves between two states:
//
//	Locked --Unlock--> Unlocked --Lock / idle timeout--> Locked
//
// While unlocked it holds the decrypted entries, the derived key and the
// advisory lock on the vault file. Every mutation marks the session dirty;
// Save writes the whole set through storage.Store and can run in the
// background via SaveAsync. Only one save runs at a time per session.
//
// Lock overwrites every secret and drops the key before releasing the
// vault. Get and List hand out copies, so callers wipe their own.
//
// The package also holds session level tools: the security audit, the
// entry diff used for history, and the passphrase prompt.
package core
