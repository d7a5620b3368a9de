package cmd

import (
	"fmt"

	"github.com/illarion/pwvault/internal/crypto"
)

// Init creates a new empty vault at the configured path.
func Init(a *App, strong bool) error {
	params, err := crypto.DefaultKDFParams()
	if strong {
		params, err = crypto.StrongKDFParams()
	}
	if err != nil {
		return err
	}

	passphrase, err := GetPassphraseForInit()
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(passphrase)

	vf, err := a.Store.Create(a.Config.VaultPath, passphrase, params)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Initialized vault at %s\n", vf.Path)
	fmt.Printf("  id: %s\n", vf.Header.VaultID)
	fmt.Println("The passphrase is not stored anywhere. Keep it safe.")
	return nil
}
