package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/illarion/pwvault/internal/config"
	"github.com/illarion/pwvault/internal/core"
	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/keyring"
	"github.com/illarion/pwvault/internal/storage"
)

// App carries what every command needs: the resolved configuration, the
// logger and a store bound to the vault's history.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  *storage.Store

	history *storage.History
}

// NewApp builds the store for cfg.VaultPath. History is opened only when
// enabled and when the vault directory exists; failing to open it is
// logged and leaves history off.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	a := &App{Config: cfg, Logger: logger}
	opts := []storage.Option{storage.WithLogger(logger)}

	if cfg.HistoryKeep > 0 {
		if _, err := os.Stat(filepath.Dir(cfg.VaultPath)); err == nil {
			h, err := storage.OpenHistory(storage.HistoryPath(cfg.VaultPath))
			if err != nil {
				logger.Warn().Err(err).Msg("history disabled")
			} else {
				a.history = h
				opts = append(opts, storage.WithHistory(h, cfg.HistoryKeep))
			}
		}
	}
	a.Store = storage.NewStore(opts...)
	return a
}

func (a *App) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close history")
		}
	}
}

// GetPassphrase returns the passphrase for vaultID from PWVAULT_PASSPHRASE,
// the OS keyring, or the terminal, in that order. fromKeyring reports
// whether the keyring supplied it. The caller clears the result.
func GetPassphrase(vaultID uuid.UUID, prompt string) (passphrase []byte, fromKeyring bool, err error) {
	if p := core.PassphraseFromEnv(); p != nil {
		return p, false, nil
	}
	if vaultID != uuid.Nil {
		if p, err := keyring.GetPassphrase(vaultID); err == nil {
			return p, true, nil
		}
	}
	p, err := core.ReadPassphrase(prompt)
	if err != nil {
		return nil, false, err
	}
	return p, false, nil
}

// GetPassphraseForInit reads a new passphrase from the environment or
// prompts twice.
func GetPassphraseForInit() ([]byte, error) {
	if p := core.PassphraseFromEnv(); p != nil {
		return p, nil
	}
	return core.ReadPassphraseConfirm()
}

// OpenSession unlocks the configured vault. A stale keyring passphrase
// falls back to the prompt once.
func (a *App) OpenSession(ctx context.Context) (*core.Session, error) {
	hdr, err := a.Store.ReadHeader(a.Config.VaultPath)
	if err != nil {
		return nil, err
	}

	s := core.New(a.Store,
		core.WithLogger(a.Logger),
		core.WithIdleTimeout(a.Config.IdleTimeout),
	)

	passphrase, fromKeyring, err := GetPassphrase(hdr.VaultID, "Master passphrase: ")
	if err != nil {
		return nil, err
	}
	err = s.Unlock(ctx, a.Config.VaultPath, passphrase)
	crypto.ClearBytes(passphrase)

	if errors.Is(err, crypto.ErrAuthFailed) && fromKeyring {
		a.Logger.Warn().Str("vault_id", hdr.VaultID.String()).Msg("keyring passphrase rejected")
		passphrase, err = core.ReadPassphrase("Master passphrase: ")
		if err != nil {
			return nil, err
		}
		err = s.Unlock(ctx, a.Config.VaultPath, passphrase)
		crypto.ClearBytes(passphrase)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Commit saves pending changes and locks s. The session is locked even
// when the save fails.
func Commit(ctx context.Context, s *core.Session) error {
	err := s.Save(ctx)
	if lerr := s.Lock(); err == nil {
		err = lerr
	}
	return err
}

// Confirm asks a yes/no question on stderr. Anything but y or yes is no.
func Confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// HandleError prints err the way users should see it and exits.
func HandleError(err error) {
	var weak *crypto.WeakParameterError
	var ioErr *storage.IOError

	switch {
	case errors.Is(err, crypto.ErrAuthFailed):
		fmt.Fprintf(os.Stderr, "Error: incorrect passphrase or corrupted vault\n")
	case errors.Is(err, storage.ErrNotFound):
		fmt.Fprintf(os.Stderr, "Error: vault not found\n")
		fmt.Fprintf(os.Stderr, "Run 'pwvault init' first, or point --vault at an existing file\n")
	case errors.Is(err, storage.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: a vault already exists at this path\n")
		fmt.Fprintf(os.Stderr, "Use 'pwvault status' to inspect it\n")
	case errors.Is(err, storage.ErrVaultBusy):
		fmt.Fprintf(os.Stderr, "Error: vault is in use by another pwvault process\n")
	case errors.Is(err, storage.ErrUnsupportedVersion):
		fmt.Fprintf(os.Stderr, "Error: vault was written by a newer pwvault\n")
	case errors.Is(err, core.ErrPassphraseMismatch):
		fmt.Fprintf(os.Stderr, "Error: passphrases do not match\n")
	case errors.Is(err, crypto.ErrEmptyPassphrase):
		fmt.Fprintf(os.Stderr, "Error: passphrase must not be empty\n")
	case errors.As(err, &weak):
		fmt.Fprintf(os.Stderr, "Error: %s\n", weak)
	case errors.As(err, &ioErr) && errors.Is(ioErr.Err, fs.ErrPermission):
		fmt.Fprintf(os.Stderr, "Error: permission denied: %s\n", ioErr.Path)
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}
