package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/illarion/pwvault/internal/config"
	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/keyring"
	"github.com/illarion/pwvault/internal/storage"
)

// SaveAs writes the vault to target under a passphrase read like init
// does, with a fresh salt. With move the old file and its lock file are
// removed afterwards. History snapshots stay with the old path.
func SaveAs(ctx context.Context, a *App, target string, strong, move bool) error {
	target, err := config.ExpandPath(target)
	if err != nil {
		return err
	}

	s, err := a.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer s.Lock()

	vaultID, err := s.VaultID()
	if err != nil {
		return err
	}

	passphrase, err := GetPassphraseForInit()
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(passphrase)

	var params crypto.KDFParams
	if strong {
		if params, err = crypto.StrongKDFParams(); err != nil {
			return err
		}
	}
	if err := s.SaveAs(ctx, target, passphrase, params); err != nil {
		return err
	}

	if keyring.HasPassphrase(vaultID) {
		if err := keyring.SavePassphrase(vaultID, passphrase); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to update keyring")
		}
	}

	if move {
		old := a.Config.VaultPath
		for _, p := range []string{old, storage.LockPath(old)} {
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				a.Logger.Warn().Err(err).Str("path", p).Msg("failed to remove old vault file")
			}
		}
		a.Logger.Info().Str("from", old).Str("to", target).Msg("vault moved")
	}

	if err := s.Lock(); err != nil {
		return err
	}
	fmt.Printf("✓ Vault saved to %s\n", target)
	fmt.Printf("Use --vault %s or set %s to open it\n", target, config.EnvPath)
	return nil
}
