package keyring

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/zalando/go-keyring"
)

func TestPassphraseLifecycle(t *testing.T) {
	keyring.MockInit()
	id := uuid.New()

	if HasPassphrase(id) {
		t.Fatal("Fresh keyring should not hold a passphrase")
	}
	if _, err := GetPassphrase(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	if err := SavePassphrase(id, []byte("correct-horse")); err != nil {
		t.Fatalf("Failed to save passphrase: %v", err)
	}
	got, err := GetPassphrase(id)
	if err != nil {
		t.Fatalf("Failed to get passphrase: %v", err)
	}
	if string(got) != "correct-horse" {
		t.Errorf("Passphrase mismatch: got %q", got)
	}
	if HasPassphrase(uuid.New()) {
		t.Error("Passphrases must be keyed by vault id")
	}

	if err := DeletePassphrase(id); err != nil {
		t.Fatalf("Failed to delete passphrase: %v", err)
	}
	if HasPassphrase(id) {
		t.Error("Passphrase should be gone after delete")
	}
	if err := DeletePassphrase(id); err != nil {
		t.Errorf("Deleting a missing passphrase should succeed, got %v", err)
	}
}
