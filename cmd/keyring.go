package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/pwvault/internal/core"
	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/keyring"
)

// KeyringSave verifies the passphrase by unlocking the vault, then stores
// it in the OS keyring.
func KeyringSave(ctx context.Context, a *App) error {
	hdr, err := a.Store.ReadHeader(a.Config.VaultPath)
	if err != nil {
		return err
	}

	passphrase, err := core.ReadPassphrase("Master passphrase: ")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(passphrase)

	s := core.New(a.Store, core.WithLogger(a.Logger))
	if err := s.Unlock(ctx, a.Config.VaultPath, passphrase); err != nil {
		return err
	}
	if err := s.Lock(); err != nil {
		return err
	}

	if err := keyring.SavePassphrase(hdr.VaultID, passphrase); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	fmt.Println("Passphrase saved to keyring")
	return nil
}

// KeyringDelete removes the stored passphrase, if any.
func KeyringDelete(a *App) error {
	hdr, err := a.Store.ReadHeader(a.Config.VaultPath)
	if err != nil {
		return err
	}
	if !keyring.HasPassphrase(hdr.VaultID) {
		fmt.Println("No passphrase stored in keyring")
		return nil
	}
	if err := keyring.DeletePassphrase(hdr.VaultID); err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	fmt.Println("Passphrase removed from keyring")
	return nil
}

// KeyringStatus reports whether a passphrase is stored for the vault.
func KeyringStatus(a *App) error {
	hdr, err := a.Store.ReadHeader(a.Config.VaultPath)
	if err != nil {
		return err
	}
	if keyring.HasPassphrase(hdr.VaultID) {
		fmt.Println("Passphrase: stored in keyring")
	} else {
		fmt.Println("Passphrase: not stored")
	}
	return nil
}
