package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/pwvault/internal/core"
	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/keyring"
)

// Passwd changes the master passphrase. With strong the KDF costs are
// raised to the strong preset, otherwise they are kept.
func Passwd(ctx context.Context, a *App, strong bool) error {
	s, err := a.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer s.Lock()

	vaultID, err := s.VaultID()
	if err != nil {
		return err
	}

	newPassphrase, err := core.ReadPassphraseConfirm()
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(newPassphrase)

	var params crypto.KDFParams
	if strong {
		if params, err = crypto.StrongKDFParams(); err != nil {
			return err
		}
	}
	if err := s.ChangePassphrase(ctx, newPassphrase, params); err != nil {
		return err
	}

	// A keyring entry holding the old passphrase would only fail from now on.
	if keyring.HasPassphrase(vaultID) {
		if err := keyring.SavePassphrase(vaultID, newPassphrase); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to update keyring")
		} else {
			fmt.Println("Keyring updated with new passphrase")
		}
	}

	if err := s.Lock(); err != nil {
		return err
	}
	fmt.Println("✓ Passphrase changed")
	return nil
}
