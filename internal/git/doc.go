// Package git checks how a vault sits inside a git repository.
//
// Committing the sealed vault is fine. The lock file and the history
// database are not meant to be committed and should be in .gitignore.
package git
