package cmd

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/zalando/go-keyring"

	"github.com/illarion/pwvault/internal/config"
	"github.com/illarion/pwvault/internal/core"
	"github.com/illarion/pwvault/internal/entry"
	"github.com/illarion/pwvault/internal/generator"
	"github.com/illarion/pwvault/internal/storage"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	keyring.MockInit()
	t.Setenv(core.PassphraseEnv, "correct-horse")

	cfg := &config.Config{
		VaultPath:   filepath.Join(t.TempDir(), "vault.dat"),
		LogLevel:    zerolog.Disabled,
		IdleTimeout: time.Minute,
		HistoryKeep: 5,
	}
	a := NewApp(cfg, zerolog.Nop())
	t.Cleanup(a.Close)
	if err := Init(a, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return a
}

func entries(t *testing.T, a *App) []entry.Entry {
	t.Helper()
	s, err := a.OpenSession(context.Background())
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	defer s.Lock()
	list, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	return list
}

func str(s string) *string { return &s }

func TestAddEditRemove(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	src := SecretSource{Generate: true, Gen: generator.DefaultOptions()}
	if err := Add(ctx, a, EntryFields{Title: str("Bank"), Username: str("alice")}, src); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	list := entries(t, a)
	if len(list) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(list))
	}
	added := list[0]
	if added.Title != "Bank" || added.Username != "alice" {
		t.Errorf("Unexpected entry: %+v", added)
	}
	if len(added.Secret) != generator.DefaultLength {
		t.Errorf("Expected a generated secret of %d bytes, got %d", generator.DefaultLength, len(added.Secret))
	}

	if err := Edit(ctx, a, "bank", EntryFields{Category: str("finance")}, false, SecretSource{}); err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	edited := entries(t, a)[0]
	if edited.Category != "finance" || edited.Username != "alice" {
		t.Errorf("Edit should only change the given fields: %+v", edited)
	}
	if string(edited.Secret) != string(added.Secret) {
		t.Error("Edit without a new secret must keep the old one")
	}

	if err := Remove(ctx, a, []string{edited.ID}, true); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if n := len(entries(t, a)); n != 0 {
		t.Errorf("Expected empty vault, got %d entries", n)
	}

	snaps, err := a.Store.History().List()
	if err != nil {
		t.Fatalf("Failed to list history: %v", err)
	}
	if len(snaps) != 3 {
		t.Errorf("Expected 3 snapshots (add, edit, rm), got %d", len(snaps))
	}
}

func TestAddRequiresTitle(t *testing.T) {
	a := newTestApp(t)
	src := SecretSource{Generate: true, Gen: generator.DefaultOptions()}
	if err := Add(context.Background(), a, EntryFields{Title: str("  ")}, src); err == nil {
		t.Error("Expected an error for a blank title")
	}
}

func TestImportSkipsPresentEntries(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	batch := []entry.Entry{
		{ID: "one", Title: "One", Secret: []byte("x")},
		{ID: "two", Title: "Two"},
	}
	if err := importEntries(ctx, a, batch); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if err := importEntries(ctx, a, batch); err != nil {
		t.Fatalf("Second import failed: %v", err)
	}
	if n := len(entries(t, a)); n != 2 {
		t.Errorf("Expected 2 entries after importing twice, got %d", n)
	}
}

func TestHistoryPruneAndRestore(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)
	src := SecretSource{Generate: true, Gen: generator.DefaultOptions()}

	for _, title := range []string{"A", "B", "C"} {
		if err := Add(ctx, a, EntryFields{Title: str(title)}, src); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := HistoryPrune(a, 2); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	snaps, err := a.Store.History().List()
	if err != nil {
		t.Fatalf("Failed to list history: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("Expected 2 snapshots after prune, got %d", len(snaps))
	}

	// The newest snapshot is the vault before C was added.
	last := snaps[len(snaps)-1].ID
	if err := HistoryRestore(a, strconv.FormatUint(last, 10), true); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if n := len(entries(t, a)); n != 2 {
		t.Errorf("Expected 2 entries after restore, got %d", n)
	}

	if err := HistoryRestore(a, "zero", true); err == nil {
		t.Error("Expected an error for a bad snapshot id")
	}
}

func TestHistoryDisabled(t *testing.T) {
	a := newTestApp(t)
	a.Store = storage.NewStore()
	if err := HistoryList(a); !errors.Is(err, storage.ErrHistoryDisabled) {
		t.Errorf("Expected ErrHistoryDisabled, got %v", err)
	}
}

func TestStatusMissingVault(t *testing.T) {
	keyring.MockInit()
	cfg := &config.Config{VaultPath: filepath.Join(t.TempDir(), "none.dat")}
	a := NewApp(cfg, zerolog.Nop())
	defer a.Close()
	if err := Status(a); err != nil {
		t.Errorf("Status of a missing vault should not fail: %v", err)
	}
}

func TestStatus(t *testing.T) {
	a := newTestApp(t)
	if err := Status(a); err != nil {
		t.Errorf("Status failed: %v", err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		512:         "512 B",
		2048:        "2.0 KiB",
		5 * 1 << 20: "5.0 MiB",
	}
	for size, want := range tests {
		if got := formatSize(size); got != want {
			t.Errorf("formatSize(%d) = %q, want %q", size, got, want)
		}
	}
}

func TestSaveAsMove(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)
	src := SecretSource{Generate: true, Gen: generator.DefaultOptions()}
	if err := Add(ctx, a, EntryFields{Title: str("Bank")}, src); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	old := a.Config.VaultPath
	target := filepath.Join(t.TempDir(), "moved", "vault.dat")
	if err := SaveAs(ctx, a, target, false, true); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	for _, p := range []string{old, storage.LockPath(old)} {
		if _, err := os.Stat(p); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("%s should be removed after a move", p)
		}
	}

	cfg := *a.Config
	cfg.VaultPath = target
	moved := NewApp(&cfg, zerolog.Nop())
	t.Cleanup(moved.Close)
	list := entries(t, moved)
	if len(list) != 1 || list[0].Title != "Bank" {
		t.Errorf("Unexpected entries after move: %+v", list)
	}

	if err := SaveAs(ctx, moved, target, false, false); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
}
