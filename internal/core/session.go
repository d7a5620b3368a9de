package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/entry"
	"github.com/illarion/pwvault/internal/storage"
)

const DefaultIdleTimeout = 5 * time.Minute

var (
	ErrLocked          = errors.New("vault is locked")
	ErrNotFound        = errors.New("entry not found")
	ErrAlreadyUnlocked = errors.New("vault is already unlocked")
)

// State is the lifecycle state of a Session.
type State int

const (
	StateLocked State = iota
	StateUnlocked
)

func (s State) String() string {
	if s == StateUnlocked {
		return "unlocked"
	}
	return "locked"
}

// Session is the unlocked working set of one vault. All methods are safe
// for concurrent use. Mutations are serialized against saves by mu; saves
// are serialized against each other, and against Lock, by saveMu.
//
// Lock ordering: saveMu before mu.
type Session struct {
	store       *storage.Store
	logger      zerolog.Logger
	now         func() time.Time
	idleTimeout time.Duration

	saveMu sync.Mutex

	mu       sync.Mutex
	state    State
	path     string
	key      *storage.MasterKey
	fileLock *storage.FileLock
	entries  map[string]entry.Entry
	order    []string
	dirty    bool
	gen      uint64 // bumped by every mutation
	epoch    uint64 // bumped by every unlock
	idle     *time.Timer
}

type Option func(*Session)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithIdleTimeout locks the session after d without any call. Zero
// disables the idle lock.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Session) { s.idleTimeout = d }
}

// WithClock sets the time source used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New returns a locked session backed by store.
func New(store *storage.Store, opts ...Option) *Session {
	s := &Session{
		store:  store,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Unlock opens the vault at path and takes the single-writer lock on it.
func (s *Session) Unlock(ctx context.Context, path string, passphrase []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.State() == StateUnlocked {
		return ErrAlreadyUnlocked
	}

	// The lock file is created on demand, so a missing vault has to be
	// caught before it.
	if err := storage.CheckExists(path); err != nil {
		return err
	}
	fl, err := storage.AcquireLock(path)
	if err != nil {
		return err
	}
	entries, key, err := s.store.Unlock(path, passphrase)
	if err != nil {
		fl.Release()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUnlocked {
		entry.WipeAll(entries)
		key.Destroy()
		fl.Release()
		return ErrAlreadyUnlocked
	}

	s.entries = make(map[string]entry.Entry, len(entries))
	s.order = make([]string, 0, len(entries))
	for _, e := range entries {
		s.entries[e.ID] = e
		s.order = append(s.order, e.ID)
	}
	s.path = path
	s.key = key
	s.fileLock = fl
	s.dirty = false
	s.state = StateUnlocked
	s.epoch++
	if s.idleTimeout > 0 {
		epoch := s.epoch
		s.idle = time.AfterFunc(s.idleTimeout, func() { s.idleLock(epoch) })
	}

	s.logger.Info().Str("path", path).Int("entries", len(entries)).Msg("session unlocked")
	return nil
}

// Get returns a copy of the entry with id.
func (s *Session) Get(id string) (entry.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return entry.Entry{}, err
	}
	e, ok := s.entries[id]
	if !ok {
		return entry.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.Clone(), nil
}

// Put inserts or updates e and returns its id. An empty id gets a fresh
// UUID. Inserts keep the timestamps e carries, so imported entries retain
// their history; unset ones become now. Updates keep the original
// CreatedAt and set UpdatedAt to now. The session stores its own copy of
// the secret.
func (s *Session) Put(e entry.Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return "", err
	}

	now := s.now().UTC()
	e = e.Clone()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	old, exists := s.entries[e.ID]
	if exists {
		e.CreatedAt = old.CreatedAt
		old.Wipe()
	} else {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		s.order = append(s.order, e.ID)
	}
	if exists || e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
	s.entries[e.ID] = e
	s.markDirtyLocked()

	s.logger.Debug().Str("id", e.ID).Msg("entry stored")
	return e.ID, nil
}

// Delete removes the entry with id and wipes its secret.
func (s *Session) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.Wipe()
	delete(s.entries, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.markDirtyLocked()

	s.logger.Debug().Str("id", id).Msg("entry deleted")
	return nil
}

// List returns copies of all entries. The order is stable for the life of
// the session: unlocked entries first, then inserts in the order they
// happened.
func (s *Session) List() ([]entry.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return nil, err
	}
	return s.snapshotLocked(), nil
}

// Save writes the current entries through the store. Concurrent calls
// queue behind each other. Once the write has started it runs to
// completion; ctx is only checked before that.
func (s *Session) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.activeLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := s.snapshotLocked()
	key, path, gen := s.key, s.path, s.gen
	s.mu.Unlock()
	defer entry.WipeAll(snapshot)

	// key stays valid here: Lock needs saveMu before destroying it.
	if err := s.store.Save(path, key, snapshot); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("save failed")
		return err
	}

	s.mu.Lock()
	if s.gen == gen {
		s.dirty = false
	}
	s.touchLocked()
	s.mu.Unlock()
	return nil
}

// SaveAsync runs Save in the background. The channel receives exactly one
// result and is then closed.
func (s *Session) SaveAsync(ctx context.Context) <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- s.Save(ctx)
		close(ch)
	}()
	return ch
}

// ChangePassphrase re-derives the key with a fresh salt and saves at once.
// A zero params keeps the current KDF costs.
func (s *Session) ChangePassphrase(ctx context.Context, passphrase []byte, params crypto.KDFParams) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.activeLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	oldKey, path, gen := s.key, s.path, s.gen
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	defer entry.WipeAll(snapshot)

	if params.Algorithm == 0 {
		params = oldKey.Params()
	}
	params, err := params.WithFreshSalt()
	if err != nil {
		return err
	}
	newKey, err := oldKey.Rekey(passphrase, params)
	if err != nil {
		return err
	}
	if err := s.store.Save(path, newKey, snapshot); err != nil {
		newKey.Destroy()
		return fmt.Errorf("failed to save with new passphrase: %w", err)
	}

	s.mu.Lock()
	s.key = newKey
	if s.gen == gen {
		s.dirty = false
	}
	s.touchLocked()
	s.mu.Unlock()
	oldKey.Destroy()

	s.logger.Info().Str("path", path).Str("kdf", params.Algorithm.String()).Msg("passphrase changed")
	return nil
}

// SaveAs writes the entries to a new vault file at path, sealed with
// passphrase under a fresh salt, and switches the session to it. The vault
// keeps its id. A zero params keeps the current KDF costs. The old file is
// left untouched and its lock is released. path must not exist yet.
func (s *Session) SaveAs(ctx context.Context, path string, passphrase []byte, params crypto.KDFParams) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.activeLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	oldKey, oldPath, oldLock, gen := s.key, s.path, s.fileLock, s.gen
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	defer entry.WipeAll(snapshot)

	if err := storage.CheckExists(path); err == nil {
		return storage.ErrAlreadyExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	if params.Algorithm == 0 {
		params = oldKey.Params()
	}
	params, err := params.WithFreshSalt()
	if err != nil {
		return err
	}
	newKey, err := oldKey.Rekey(passphrase, params)
	if err != nil {
		return err
	}

	fl, err := storage.AcquireNewLock(path)
	if err != nil {
		newKey.Destroy()
		return err
	}
	if _, err := s.store.SaveNew(path, newKey, snapshot); err != nil {
		newKey.Destroy()
		if derr := fl.Discard(); derr != nil {
			s.logger.Warn().Err(derr).Str("path", path).Msg("failed to remove lock file")
		}
		return fmt.Errorf("failed to save vault to %s: %w", path, err)
	}

	s.mu.Lock()
	s.key = newKey
	s.path = path
	s.fileLock = fl
	if s.gen == gen {
		s.dirty = false
	}
	s.touchLocked()
	s.mu.Unlock()
	oldKey.Destroy()
	if err := oldLock.Release(); err != nil {
		s.logger.Warn().Err(err).Str("path", oldPath).Msg("failed to release old vault lock")
	}

	s.logger.Info().Str("from", oldPath).Str("path", path).Msg("vault saved to new location")
	return nil
}

// Lock waits for a running save, wipes every secret and the key, and
// releases the vault lock. Unsaved changes are discarded; callers that
// care check Dirty first. Locking a locked session is a no-op.
func (s *Session) Lock() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockLocked()
}

func (s *Session) lockLocked() error {
	if s.state == StateLocked {
		return nil
	}
	if s.dirty {
		s.logger.Warn().Str("path", s.path).Msg("locking with unsaved changes")
	}
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}

	for id, e := range s.entries {
		e.Wipe()
		delete(s.entries, id)
	}
	s.entries = nil
	s.order = nil
	s.key.Destroy()
	s.key = nil
	s.dirty = false
	s.state = StateLocked

	err := s.fileLock.Release()
	s.fileLock = nil
	s.logger.Info().Str("path", s.path).Msg("session locked")
	return err
}

// idleLock saves pending changes and locks the unlock identified by
// epoch. A failed save is logged and the session is locked anyway.
func (s *Session) idleLock(epoch uint64) {
	s.mu.Lock()
	current := s.epoch == epoch && s.state == StateUnlocked
	dirty := s.dirty
	s.mu.Unlock()
	if !current {
		return
	}

	s.logger.Info().Dur("idle_timeout", s.idleTimeout).Msg("idle timeout reached")
	if dirty {
		if err := s.Save(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("idle lock: save failed, unsaved changes are lost")
		}
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	if err := s.lockLocked(); err != nil {
		s.logger.Warn().Err(err).Msg("idle lock: failed to release vault lock")
	}
}

// Dirty reports whether there are changes not yet saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Path returns the vault path, or "" while locked.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateLocked {
		return ""
	}
	return s.path
}

// VaultID returns the id of the unlocked vault.
func (s *Session) VaultID() (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return uuid.Nil, err
	}
	return s.key.VaultID(), nil
}

// activeLocked returns ErrLocked unless the session is unlocked, and
// resets the idle timer otherwise. Callers hold mu.
func (s *Session) activeLocked() error {
	if s.state != StateUnlocked {
		return ErrLocked
	}
	s.touchLocked()
	return nil
}

func (s *Session) touchLocked() {
	if s.idle != nil {
		s.idle.Reset(s.idleTimeout)
	}
}

func (s *Session) markDirtyLocked() {
	s.dirty = true
	s.gen++
}

func (s *Session) snapshotLocked() []entry.Entry {
	out := make([]entry.Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].Clone())
	}
	return out
}
