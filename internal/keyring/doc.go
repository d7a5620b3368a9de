// Package keyring keeps vault passphrases in the OS keyring, keyed by vault id.
package keyring
