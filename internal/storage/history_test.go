package storage

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/entry"
)

func openHistory(t *testing.T, vaultPath string) *History {
	t.Helper()
	h, err := OpenHistory(HistoryPath(vaultPath))
	if err != nil {
		t.Fatalf("Failed to open history: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistoryRecordsEverySave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.dat")
	h := openHistory(t, path)
	s := NewStore(WithHistory(h, 0))

	if _, err := s.Create(path, testPassphrase, testParams(t)); err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}
	_, key, err := s.Unlock(path, testPassphrase)
	if err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}
	defer key.Destroy()

	created := readFile(t, path)
	if err := s.Save(path, key, []entry.Entry{bankEntry()}); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if err := s.Save(path, key, nil); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	snaps, err := h.List()
	if err != nil {
		t.Fatalf("Failed to list snapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].ID >= snaps[1].ID {
		t.Errorf("Snapshots not in order: %d, %d", snaps[0].ID, snaps[1].ID)
	}

	first, err := h.Get(snaps[0].ID)
	if err != nil {
		t.Fatalf("Failed to get snapshot: %v", err)
	}
	if !bytes.Equal(first, created) {
		t.Error("First snapshot should be the freshly created vault")
	}

	id, ok, err := h.VaultID()
	if err != nil || !ok {
		t.Fatalf("Failed to read history vault id: %v", err)
	}
	if id != key.VaultID() {
		t.Errorf("History bound to %s, want %s", id, key.VaultID())
	}
}

func TestHistoryRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.dat")
	h := openHistory(t, path)
	s := NewStore(WithHistory(h, 0))

	if _, err := s.Create(path, testPassphrase, testParams(t)); err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}
	_, key, err := s.Unlock(path, testPassphrase)
	if err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}
	defer key.Destroy()

	if err := s.Save(path, key, []entry.Entry{bankEntry()}); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if err := s.Save(path, key, nil); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	// Snapshot 2 holds the vault with the bank entry.
	if err := s.Restore(path, 2); err != nil {
		t.Fatalf("Failed to restore: %v", err)
	}

	entries, key2, err := s.Unlock(path, testPassphrase)
	if err != nil {
		t.Fatalf("Failed to unlock restored vault: %v", err)
	}
	defer key2.Destroy()
	if len(entries) != 1 || entries[0].Title != "Bank" {
		t.Fatalf("Restored vault mismatch: %+v", entries)
	}

	snaps, err := h.List()
	if err != nil {
		t.Fatalf("Failed to list snapshots: %v", err)
	}
	if len(snaps) != 3 {
		t.Errorf("Restore should record the replaced file, got %d snapshots", len(snaps))
	}

	if err := s.Restore(path, 99); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestHistoryPrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.dat")
	h := openHistory(t, path)
	s := NewStore(WithHistory(h, 2))

	if _, err := s.Create(path, testPassphrase, testParams(t)); err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}
	_, key, err := s.Unlock(path, testPassphrase)
	if err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}
	defer key.Destroy()

	for i := 0; i < 5; i++ {
		if err := s.Save(path, key, nil); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
	}

	snaps, err := h.List()
	if err != nil {
		t.Fatalf("Failed to list snapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("Expected 2 snapshots after pruning, got %d", len(snaps))
	}
	if snaps[0].ID != 4 || snaps[1].ID != 5 {
		t.Errorf("Expected newest snapshots 4 and 5, got %d and %d", snaps[0].ID, snaps[1].ID)
	}

	removed, err := h.Prune(0)
	if err != nil {
		t.Fatalf("Failed to prune: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}
}

func TestHistoryVaultMismatch(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()
	a := filepath.Join(dir, "a.dat")
	b := filepath.Join(dir, "b.dat")
	for _, p := range []string{a, b} {
		if _, err := s.Create(p, testPassphrase, testParams(t)); err != nil {
			t.Fatalf("Failed to create vault: %v", err)
		}
	}

	h := openHistory(t, a)
	if _, err := h.Record(readFile(t, a)); err != nil {
		t.Fatalf("Failed to record: %v", err)
	}
	if _, err := h.Record(readFile(t, b)); !errors.Is(err, ErrVaultMismatch) {
		t.Errorf("Expected ErrVaultMismatch, got %v", err)
	}
	if _, err := h.Record([]byte("not a vault")); err == nil {
		t.Error("Expected garbage to be rejected")
	}
}

func TestHistoryCompactAndPersistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "v.dat")
	s := NewStore()
	if _, err := s.Create(path, testPassphrase, testParams(t)); err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}
	sealed := readFile(t, path)

	h, err := OpenHistory(HistoryPath(path))
	if err != nil {
		t.Fatalf("Failed to open history: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := h.Record(sealed); err != nil {
			t.Fatalf("Failed to record: %v", err)
		}
	}
	if _, err := h.Prune(1); err != nil {
		t.Fatalf("Failed to prune: %v", err)
	}
	if err := h.Compact(); err != nil {
		t.Fatalf("Failed to compact: %v", err)
	}

	// The sequence survives compaction.
	snap, err := h.Record(sealed)
	if err != nil {
		t.Fatalf("Failed to record after compact: %v", err)
	}
	if snap.ID != 4 {
		t.Errorf("Snapshot id after compact = %d, want 4", snap.ID)
	}
	h.Close()

	h2, err := OpenHistory(HistoryPath(path))
	if err != nil {
		t.Fatalf("Failed to reopen history: %v", err)
	}
	defer h2.Close()

	snaps, err := h2.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snaps))
	}
	data, err := h2.Get(snaps[0].ID)
	if err != nil {
		t.Fatalf("Failed to get snapshot: %v", err)
	}
	if !bytes.Equal(data, sealed) {
		t.Error("Snapshot data not persisted correctly")
	}
}

func TestRestoredSnapshotKeepsOldPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.dat")
	h := openHistory(t, path)
	s := NewStore(WithHistory(h, 0))

	if _, err := s.Create(path, testPassphrase, testParams(t)); err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}
	_, key, err := s.Unlock(path, testPassphrase)
	if err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}
	defer key.Destroy()

	params, err := key.Params().WithFreshSalt()
	if err != nil {
		t.Fatalf("Failed to create params: %v", err)
	}
	newKey, err := key.Rekey([]byte("new-pass"), params)
	if err != nil {
		t.Fatalf("Failed to rekey: %v", err)
	}
	defer newKey.Destroy()
	if err := s.Save(path, newKey, nil); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	if _, _, err := s.Unlock(path, testPassphrase); !errors.Is(err, crypto.ErrAuthFailed) {
		t.Fatalf("Old passphrase should fail after rekey, got %v", err)
	}
	if err := s.Restore(path, 1); err != nil {
		t.Fatalf("Failed to restore: %v", err)
	}
	_, k, err := s.Unlock(path, testPassphrase)
	if err != nil {
		t.Fatalf("Restored snapshot should open with the old passphrase: %v", err)
	}
	k.Destroy()
}

func TestOpenSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.dat")
	h := openHistory(t, path)
	s := NewStore(WithHistory(h, 0))

	if _, err := s.Create(path, testPassphrase, testParams(t)); err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}
	_, key, err := s.Unlock(path, testPassphrase)
	if err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}
	defer key.Destroy()

	if err := s.Save(path, key, []entry.Entry{bankEntry()}); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if err := s.Save(path, key, nil); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	first, err := s.OpenSnapshot(1, testPassphrase)
	if err != nil {
		t.Fatalf("Failed to open snapshot 1: %v", err)
	}
	if len(first) != 0 {
		t.Errorf("Snapshot 1 should be the empty vault, got %d entries", len(first))
	}
	second, err := s.OpenSnapshot(2, testPassphrase)
	if err != nil {
		t.Fatalf("Failed to open snapshot 2: %v", err)
	}
	if len(second) != 1 || second[0].Title != "Bank" {
		t.Errorf("Snapshot 2 should hold the bank entry, got %+v", second)
	}

	if _, err := s.OpenSnapshot(2, []byte("wrong")); !errors.Is(err, crypto.ErrAuthFailed) {
		t.Errorf("Expected ErrAuthFailed, got %v", err)
	}
	if _, err := s.OpenSnapshot(99, testPassphrase); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
	}
	if _, err := NewStore().OpenSnapshot(1, testPassphrase); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("Expected ErrHistoryDisabled, got %v", err)
	}
}
