package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/illarion/pwvault/internal/core"
	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/entry"
	"github.com/illarion/pwvault/internal/kdbx"
	"github.com/illarion/pwvault/internal/legacy"
)

// ImportJVLT copies the entries of a JVLT vault into the configured vault.
func ImportJVLT(ctx context.Context, a *App, file string) error {
	passphrase, err := core.ReadPassphrase("JVLT passphrase: ")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(passphrase)

	v, err := legacy.ReadFile(file, passphrase)
	if err != nil {
		return err
	}
	defer entry.WipeAll(v.Entries)

	a.Logger.Debug().Str("file", file).Str("name", v.Name).Int("entries", len(v.Entries)).Msg("JVLT vault read")
	return importEntries(ctx, a, v.Entries)
}

// ImportKDBX copies the entries of a KeePass database into the configured vault.
func ImportKDBX(ctx context.Context, a *App, file string) error {
	password, err := core.ReadPassphrase("KeePass password: ")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	entries, err := kdbx.ReadFile(file, string(password))
	if err != nil {
		return err
	}
	defer entry.WipeAll(entries)

	a.Logger.Debug().Str("file", file).Int("entries", len(entries)).Msg("KDBX database read")
	return importEntries(ctx, a, entries)
}

// importEntries adds entries whose id is not in the vault yet. Entries
// already present are skipped, so importing the same file twice is a no-op.
func importEntries(ctx context.Context, a *App, entries []entry.Entry) error {
	s, err := a.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer s.Lock()

	added, skipped := 0, 0
	for _, e := range entries {
		existing, err := s.Get(e.ID)
		if err == nil {
			existing.Wipe()
			skipped++
			continue
		}
		if !errors.Is(err, core.ErrNotFound) {
			return err
		}
		if _, err := s.Put(e); err != nil {
			return err
		}
		added++
	}

	if added > 0 {
		if err := Commit(ctx, s); err != nil {
			return err
		}
	}
	fmt.Printf("✓ Imported %d entries", added)
	if skipped > 0 {
		fmt.Printf(", skipped %d already present", skipped)
	}
	fmt.Println()
	return nil
}
