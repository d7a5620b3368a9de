package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/git"
	"github.com/illarion/pwvault/internal/keyring"
	"github.com/illarion/pwvault/internal/storage"
)

// Status describes the vault file without decrypting it.
func Status(a *App) error {
	path := a.Config.VaultPath
	hdr, err := a.Store.ReadHeader(path)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Printf("No vault at %s\n", path)
		fmt.Println("Run 'pwvault init' to create one")
		return nil
	}
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	fmt.Printf("Vault:    %s\n", path)
	fmt.Printf("Id:       %s\n", hdr.VaultID)
	fmt.Printf("Format:   v%d\n", hdr.Version)
	fmt.Printf("Size:     %s\n", formatSize(info.Size()))
	fmt.Printf("Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
	fmt.Printf("Cipher:   XChaCha20-Poly1305\n")

	switch hdr.KDF.Algorithm {
	case crypto.KDFArgon2id:
		fmt.Printf("KDF:      %s (memory %d MiB, time %d, parallelism %d)\n",
			hdr.KDF.Algorithm, hdr.KDF.Memory/1024, hdr.KDF.Time, hdr.KDF.Parallelism)
	default:
		fmt.Printf("KDF:      %s (%d iterations)\n", hdr.KDF.Algorithm, hdr.KDF.Time)
	}

	if lock, err := storage.AcquireLock(path); errors.Is(err, storage.ErrVaultBusy) {
		fmt.Println("In use:   yes, by another process")
	} else if err == nil {
		lock.Release()
	}

	if keyring.HasPassphrase(hdr.VaultID) {
		fmt.Println("Keyring:  passphrase stored")
	} else {
		fmt.Println("Keyring:  not stored")
	}

	if h := a.Store.History(); h != nil {
		snaps, err := h.List()
		if err != nil {
			return err
		}
		fmt.Printf("History:  %d snapshot(s), keeping %d\n", len(snaps), a.Config.HistoryKeep)
	} else {
		fmt.Println("History:  disabled")
	}

	fmt.Print(git.Format(git.Check(path, storage.LockPath(path), storage.HistoryPath(path))))
	return nil
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
