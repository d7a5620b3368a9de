package keyring

import (
	"errors"

	"github.com/google/uuid"
	"github.com/zalando/go-keyring"
)

const serviceName = "pwvault"

// ErrNotFound is returned when no passphrase is stored for a vault.
var ErrNotFound = keyring.ErrNotFound

// SavePassphrase stores a vault passphrase in the OS keyring under the
// vault id, so a moved or renamed vault keeps its entry.
func SavePassphrase(vaultID uuid.UUID, passphrase []byte) error {
	return keyring.Set(serviceName, vaultID.String(), string(passphrase))
}

// GetPassphrase retrieves a vault passphrase from the OS keyring
func GetPassphrase(vaultID uuid.UUID) ([]byte, error) {
	secret, err := keyring.Get(serviceName, vaultID.String())
	if err != nil {
		return nil, err
	}
	return []byte(secret), nil
}

// DeletePassphrase removes a vault passphrase from the OS keyring.
// Deleting a missing entry is not an error.
func DeletePassphrase(vaultID uuid.UUID) error {
	err := keyring.Delete(serviceName, vaultID.String())
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasPassphrase checks if a passphrase is stored for the vault
func HasPassphrase(vaultID uuid.UUID) bool {
	_, err := keyring.Get(serviceName, vaultID.String())
	return err == nil
}
