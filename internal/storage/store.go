package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/entry"
)

const (
	FilePerm = 0600 // owner rw only
	DirPerm  = 0700
)

var (
	ErrNotFound           = errors.New("vault: file not found")
	ErrAlreadyExists      = errors.New("vault: file already exists")
	ErrUnsupportedVersion = errors.New("vault: unsupported format version")
	ErrHistoryDisabled    = errors.New("vault: history is not enabled")
)

// IOError is a filesystem failure while reading or writing a vault.
// A failed Save leaves the previous file intact and may simply be retried.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("vault: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// MasterKey is the derived payload key of one vault together with the
// parameters it was derived with.
type MasterKey struct {
	key     *crypto.SecureKey
	params  crypto.KDFParams
	vaultID uuid.UUID
}

// DeriveMasterKey runs the KDF and seals the result in a SecureKey.
func DeriveMasterKey(passphrase []byte, params crypto.KDFParams, vaultID uuid.UUID) (*MasterKey, error) {
	raw, err := crypto.DeriveKey(passphrase, params)
	if err != nil {
		return nil, err
	}
	sk, err := crypto.NewSecureKey(raw)
	if err != nil {
		return nil, err
	}
	return &MasterKey{key: sk, params: params.Clone(), vaultID: vaultID}, nil
}

// Rekey derives a key for the same vault from a new passphrase and params.
func (k *MasterKey) Rekey(passphrase []byte, params crypto.KDFParams) (*MasterKey, error) {
	return DeriveMasterKey(passphrase, params, k.vaultID)
}

func (k *MasterKey) VaultID() uuid.UUID { return k.vaultID }

func (k *MasterKey) Params() crypto.KDFParams { return k.params.Clone() }

// Destroy wipes the key. The MasterKey is unusable afterwards.
func (k *MasterKey) Destroy() {
	if k != nil && k.key != nil {
		k.key.Destroy()
	}
}

// Destroyed reports whether Destroy has been called.
func (k *MasterKey) Destroyed() bool {
	return k == nil || k.key == nil || k.key.Destroyed()
}

// VaultFile describes a vault written by Create.
type VaultFile struct {
	Path   string
	Header Header
	Size   int64
}

// Store reads and writes vault files. It holds no per-vault state and can
// be shared by sessions of different vaults.
type Store struct {
	logger       zerolog.Logger
	history      *History
	historyLimit int

	// beforeRename runs between the temp file write and the rename.
	beforeRename func(tmpPath string) error
}

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithHistory records the previous file in h before every save and keeps
// at most keep snapshots. keep <= 0 keeps everything.
func WithHistory(h *History, keep int) Option {
	return func(s *Store) {
		s.history = h
		s.historyLimit = keep
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create writes a new vault holding no entries. The salt in params is
// always replaced by a fresh one. Create never overwrites an existing path.
func (s *Store) Create(path string, passphrase []byte, params crypto.KDFParams) (*VaultFile, error) {
	if err := CheckExists(path); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	params, err := params.WithFreshSalt()
	if err != nil {
		return nil, err
	}
	key, err := DeriveMasterKey(passphrase, params, uuid.New())
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	vf, err := s.SaveNew(path, key, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("path", path).
		Str("vault_id", vf.Header.VaultID.String()).
		Str("kdf", params.Algorithm.String()).
		Msg("vault created")
	return vf, nil
}

// SaveNew seals entries under key into a file that must not exist yet.
// Missing parent directories are created. No history is recorded.
func (s *Store) SaveNew(path string, key *MasterKey, entries []entry.Entry) (*VaultFile, error) {
	if err := CheckExists(path); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	data, hdr, err := s.seal(key, entries)
	if err != nil {
		return nil, err
	}
	if err := s.writeNew(path, data); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("path", path).Int("entries", len(entries)).Int("bytes", len(data)).Msg("vault written")
	return &VaultFile{Path: path, Header: *hdr, Size: int64(len(data))}, nil
}

// CheckExists returns nil when a file is present at path and ErrNotFound
// when nothing is.
func CheckExists(path string) error {
	_, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return &IOError{Op: "stat", Path: path, Err: err}
	}
	return nil
}

// Unlock reads the vault at path and decrypts it. A wrong passphrase and a
// damaged file both yield crypto.ErrAuthFailed.
func (s *Store) Unlock(path string, passphrase []byte) ([]entry.Entry, *MasterKey, error) {
	data, err := readVault(path)
	if err != nil {
		return nil, nil, err
	}
	entries, key, hdr, err := s.open(path, data, passphrase)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debug().
		Str("path", path).
		Uint16("format_version", hdr.Version).
		Int("entries", len(entries)).
		Msg("vault unlocked")
	return entries, key, nil
}

// OpenSnapshot decrypts history snapshot id. Snapshots keep the passphrase
// the vault had when they were recorded.
func (s *Store) OpenSnapshot(id uint64, passphrase []byte) ([]entry.Entry, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	data, err := s.history.Get(id)
	if err != nil {
		return nil, err
	}
	entries, key, _, err := s.open(fmt.Sprintf("snapshot %d", id), data, passphrase)
	if err != nil {
		return nil, err
	}
	key.Destroy()
	return entries, nil
}

// History returns the snapshot store, or nil when history is disabled.
func (s *Store) History() *History {
	return s.history
}

func (s *Store) open(path string, data, passphrase []byte) ([]entry.Entry, *MasterKey, *Header, error) {
	hdr, n, err := s.parse(path, data)
	if err != nil {
		return nil, nil, nil, err
	}

	key, err := DeriveMasterKey(passphrase, hdr.KDF, hdr.VaultID)
	if err != nil {
		return nil, nil, nil, err
	}

	var plaintext []byte
	err = key.key.Use(func(k []byte) error {
		var err error
		plaintext, err = crypto.Open(k, hdr.Nonce, data[:n], data[n:])
		return err
	})
	if err != nil {
		key.Destroy()
		return nil, nil, nil, err
	}
	defer crypto.ClearBytes(plaintext)

	entries, err := entry.Decode(plaintext)
	if err != nil {
		key.Destroy()
		return nil, nil, nil, err
	}
	return entries, key, hdr, nil
}

// Save seals entries under key with a fresh nonce and atomically replaces
// the file at path.
func (s *Store) Save(path string, key *MasterKey, entries []entry.Entry) error {
	data, _, err := s.seal(key, entries)
	if err != nil {
		return err
	}
	s.snapshot(path)

	if err := s.writeAtomic(path, data); err != nil {
		return err
	}
	s.logger.Debug().Str("path", path).Int("entries", len(entries)).Int("bytes", len(data)).Msg("vault saved")
	return nil
}

// ReadHeader returns the unauthenticated header of the vault at path.
// It needs no passphrase and is meant for status output only.
func (s *Store) ReadHeader(path string) (*Header, error) {
	data, err := readVault(path)
	if err != nil {
		return nil, err
	}
	hdr, _, err := s.parse(path, data)
	return hdr, err
}

// Restore replaces the vault at path with snapshot id from the history.
// The current file is recorded first so a restore can itself be undone.
func (s *Store) Restore(path string, id uint64) error {
	if s.history == nil {
		return ErrHistoryDisabled
	}
	data, err := s.history.Get(id)
	if err != nil {
		return err
	}
	if _, _, err := s.parse(path, data); err != nil {
		return fmt.Errorf("failed to validate snapshot %d: %w", id, err)
	}
	s.snapshot(path)
	if err := s.writeAtomic(path, data); err != nil {
		return err
	}
	s.logger.Info().Str("path", path).Uint64("snapshot", id).Msg("vault restored")
	return nil
}

func (s *Store) seal(key *MasterKey, entries []entry.Entry) ([]byte, *Header, error) {
	if key == nil {
		return nil, nil, crypto.ErrKeyDestroyed
	}
	plaintext, err := entry.Encode(entries)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.ClearBytes(plaintext)

	nonce, err := crypto.NewNonce()
	if err != nil {
		return nil, nil, err
	}
	hdr := &Header{
		Version: FormatVersion,
		VaultID: key.vaultID,
		KDF:     key.params.Clone(),
		Nonce:   nonce,
	}
	ad, err := hdr.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode header: %w", err)
	}

	var ciphertext []byte
	err = key.key.Use(func(k []byte) error {
		var err error
		ciphertext, err = crypto.Seal(k, nonce, ad, plaintext)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return append(ad, ciphertext...), hdr, nil
}

// parse hides the reason for a structural failure behind ErrAuthFailed.
// Stored KDF parameters below the safety floor count as damage too: only
// a modified header can carry them.
func (s *Store) parse(path string, data []byte) (*Header, int, error) {
	hdr, n, err := parseHeader(data)
	if err == nil {
		if verr := hdr.KDF.Validate(); verr != nil {
			err = &corruptError{verr.Error()}
		}
	}
	var ce *corruptError
	if errors.As(err, &ce) {
		s.logger.Debug().Str("path", path).Str("reason", ce.reason).Msg("vault header rejected")
		return nil, 0, crypto.ErrAuthFailed
	}
	if err != nil {
		return nil, 0, err
	}
	return hdr, n, nil
}

// snapshot records the file currently at path in the history, if any.
// Failures are logged and never block a save.
func (s *Store) snapshot(path string) {
	if s.history == nil {
		return
	}
	prev, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to read vault for history")
		return
	}
	snap, err := s.history.Record(prev)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to record history snapshot")
		return
	}
	s.logger.Debug().Uint64("snapshot", snap.ID).Msg("history snapshot recorded")

	if s.historyLimit > 0 {
		if n, err := s.history.Prune(s.historyLimit); err != nil {
			s.logger.Warn().Err(err).Msg("failed to prune history")
		} else if n > 0 {
			s.logger.Debug().Int("removed", n).Msg("history pruned")
		}
	}
}

func readVault(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}
