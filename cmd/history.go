package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/illarion/pwvault/internal/core"
	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/entry"
	"github.com/illarion/pwvault/internal/storage"
)

func (a *App) requireHistory() (*storage.History, error) {
	h := a.Store.History()
	if h == nil {
		return nil, storage.ErrHistoryDisabled
	}
	return h, nil
}

// HistoryList prints the recorded snapshots, oldest first.
func HistoryList(a *App) error {
	h, err := a.requireHistory()
	if err != nil {
		return err
	}
	snaps, err := h.List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("(no snapshots)")
		return nil
	}
	for _, s := range snaps {
		fmt.Printf("%4d  %s  %8s  v%d\n", s.ID, s.SavedAt.Local().Format("2006-01-02 15:04:05"), formatSize(s.Size), s.FormatVersion)
	}
	return nil
}

// HistoryDiff shows what changed between snapshot from and snapshot to, or
// the current vault when to is empty.
func HistoryDiff(ctx context.Context, a *App, from, to string) error {
	if _, err := a.requireHistory(); err != nil {
		return err
	}
	fromID, err := parseSnapshotID(from)
	if err != nil {
		return err
	}

	var current []entry.Entry
	if to == "" {
		s, err := a.OpenSession(ctx)
		if err != nil {
			return err
		}
		current, err = s.List()
		s.Lock()
		if err != nil {
			return err
		}
	} else {
		toID, err := parseSnapshotID(to)
		if err != nil {
			return err
		}
		if current, err = a.openSnapshot(toID); err != nil {
			return err
		}
	}
	defer entry.WipeAll(current)

	old, err := a.openSnapshot(fromID)
	if err != nil {
		return err
	}
	defer entry.WipeAll(old)

	changes := core.DiffEntries(old, current)
	if len(changes) == 0 {
		fmt.Println("No changes")
		return nil
	}
	fmt.Print(core.FormatChanges(changes))
	return nil
}

// openSnapshot asks for the passphrase the snapshot was sealed with. The
// environment variable and keyring hold the current one, which usually
// still works.
func (a *App) openSnapshot(id uint64) ([]entry.Entry, error) {
	hdr, err := a.Store.ReadHeader(a.Config.VaultPath)
	if err != nil {
		return nil, err
	}
	passphrase, _, err := GetPassphrase(hdr.VaultID, fmt.Sprintf("Passphrase for snapshot %d: ", id))
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(passphrase)
	return a.Store.OpenSnapshot(id, passphrase)
}

// HistoryRestore replaces the vault with snapshot id. The current file is
// recorded first, so the restore can be undone.
func HistoryRestore(a *App, id string, force bool) error {
	if _, err := a.requireHistory(); err != nil {
		return err
	}
	snapID, err := parseSnapshotID(id)
	if err != nil {
		return err
	}
	if !force && !Confirm(fmt.Sprintf("Replace the vault with snapshot %d?", snapID)) {
		return nil
	}

	lock, err := storage.AcquireLock(a.Config.VaultPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := a.Store.Restore(a.Config.VaultPath, snapID); err != nil {
		return err
	}
	fmt.Printf("✓ Restored snapshot %d\n", snapID)
	fmt.Println("The restored vault opens with the passphrase it had at that time.")
	return nil
}

// HistoryPrune keeps the newest keep snapshots and compacts the database.
func HistoryPrune(a *App, keep int) error {
	h, err := a.requireHistory()
	if err != nil {
		return err
	}
	if keep < 0 {
		return fmt.Errorf("keep must not be negative")
	}
	removed, err := h.Prune(keep)
	if err != nil {
		return err
	}
	if err := h.Compact(); err != nil {
		a.Logger.Warn().Err(err).Msg("history compaction failed")
	}
	fmt.Printf("✓ Removed %d snapshot(s)\n", removed)
	return nil
}

func parseSnapshotID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid snapshot id %q", s)
	}
	return id, nil
}
