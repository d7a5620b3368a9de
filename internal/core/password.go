package core

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/illarion/pwvault/internal/crypto"
)

// PassphraseEnv overrides the interactive prompt, for scripts and tests.
const PassphraseEnv = "PWVAULT_PASSPHRASE"

var ErrPassphraseMismatch = errors.New("passphrases do not match")

// ReadPassphrase reads a passphrase from the terminal without echoing.
// The prompt goes to stderr so stdout stays clean for piping.
func ReadPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	passphrase, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return passphrase, nil
}

// ReadPassphraseConfirm reads a new passphrase twice and ensures they match
func ReadPassphraseConfirm() ([]byte, error) {
	first, err := ReadPassphrase("New master passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(first)

	second, err := ReadPassphrase("Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(second)

	if !crypto.ConstantTimeCompare(first, second) {
		return nil, ErrPassphraseMismatch
	}
	if len(first) == 0 {
		return nil, crypto.ErrEmptyPassphrase
	}

	// Return a copy of the passphrase
	result := make([]byte, len(first))
	copy(result, first)
	return result, nil
}

// PassphraseFromEnv reads the passphrase from PWVAULT_PASSPHRASE, or nil.
func PassphraseFromEnv() []byte {
	passphrase := os.Getenv(PassphraseEnv)
	if passphrase == "" {
		return nil
	}
	return []byte(passphrase)
}
