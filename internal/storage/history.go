package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket    = []byte("config")    // schema version, creation time, owning vault id
	IndexBucket     = []byte("index")     // snapshot metadata as JSON, keyed like the blobs
	SnapshotsBucket = []byte("snapshots") // sealed vault files, byte for byte
)

// Config keys
var (
	ConfigVersion = []byte("version")
	ConfigCreated = []byte("created")
	ConfigVaultID = []byte("vault_id")
)

var (
	ErrSnapshotNotFound = errors.New("vault: snapshot not found")
	ErrVaultMismatch    = errors.New("vault: history belongs to another vault")
)

// Snapshot describes one recorded revision of a vault file.
type Snapshot struct {
	ID            uint64    `json:"id"`
	SavedAt       time.Time `json:"savedAt"`
	Size          int64     `json:"size"`
	FormatVersion uint16    `json:"formatVersion"`
}

// History is a BBolt database of previous vault revisions. Snapshots are
// stored sealed, exactly as they were on disk, so reading one back needs
// the passphrase that was valid when it was written.
type History struct {
	db  *bolt.DB
	now func() time.Time
}

// HistoryPath returns the history database used for the vault at path.
func HistoryPath(vaultPath string) string {
	return vaultPath + ".history"
}

// OpenHistory opens or creates a history database
func OpenHistory(path string) (*History, error) {
	db, err := bolt.Open(path, FilePerm, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	h := &History{db: db, now: time.Now}
	if err := h.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// Close closes the database
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) initialize() error {
	return h.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, IndexBucket, SnapshotsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}
		created, _ := h.now().UTC().MarshalBinary()
		return config.Put(ConfigCreated, created)
	})
}

// VaultID returns the vault this history is bound to. ok is false until
// the first snapshot has been recorded.
func (h *History) VaultID() (id uuid.UUID, ok bool, err error) {
	err = h.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ConfigBucket).Get(ConfigVaultID)
		if data == nil {
			return nil
		}
		id, err = uuid.FromBytes(data)
		ok = err == nil
		return err
	})
	return id, ok, err
}

// Record stores a sealed vault file as a new snapshot. The first snapshot
// binds the history to its vault id; later snapshots of another vault are
// rejected with ErrVaultMismatch.
func (h *History) Record(sealed []byte) (Snapshot, error) {
	hdr, _, err := parseHeader(sealed)
	if err != nil {
		return Snapshot{}, fmt.Errorf("refusing to record unreadable vault: %w", err)
	}

	snap := Snapshot{
		SavedAt:       h.now().UTC(),
		Size:          int64(len(sealed)),
		FormatVersion: hdr.Version,
	}
	err = h.db.Update(func(tx *bolt.Tx) error {
		if err := bindVault(tx.Bucket(ConfigBucket), hdr.VaultID); err != nil {
			return err
		}

		blobs := tx.Bucket(SnapshotsBucket)
		seq, err := blobs.NextSequence()
		if err != nil {
			return err
		}
		snap.ID = seq

		meta, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		if err := blobs.Put(itob(seq), sealed); err != nil {
			return err
		}
		return tx.Bucket(IndexBucket).Put(itob(seq), meta)
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to record snapshot: %w", err)
	}
	return snap, nil
}

func bindVault(config *bolt.Bucket, id uuid.UUID) error {
	stored := config.Get(ConfigVaultID)
	if stored == nil {
		return config.Put(ConfigVaultID, id[:])
	}
	if string(stored) != string(id[:]) {
		return ErrVaultMismatch
	}
	return nil
}

// List returns all snapshots, oldest first.
func (h *History) List() ([]Snapshot, error) {
	var snaps []Snapshot
	err := h.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(IndexBucket).ForEach(func(k, v []byte) error {
			var s Snapshot
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("snapshot %d: %w", btoi(k), err)
			}
			snaps = append(snaps, s)
			return nil
		})
	})
	return snaps, err
}

// Get returns the sealed vault file of snapshot id.
func (h *History) Get(id uint64) ([]byte, error) {
	var data []byte
	err := h.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(SnapshotsBucket).Get(itob(id))
		if v == nil {
			return fmt.Errorf("%w: %d", ErrSnapshotNotFound, id)
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// Prune deletes the oldest snapshots so that at most keep remain and
// returns how many were removed.
func (h *History) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	removed := 0
	err := h.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		var keys [][]byte
		if err := index.ForEach(func(k, _ []byte) error {
			keys = append(keys, append([]byte(nil), k...))
			return nil
		}); err != nil {
			return err
		}
		if len(keys) <= keep {
			return nil
		}

		blobs := tx.Bucket(SnapshotsBucket)
		for _, k := range keys[:len(keys)-keep] {
			if err := index.Delete(k); err != nil {
				return err
			}
			if err := blobs.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after pruning to reclaim disk space.
func (h *History) Compact() error {
	srcPath := h.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, FilePerm, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets, including the snapshot sequence
	err = h.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				if err := dstBucket.SetSequence(srcBucket.Sequence()); err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := h.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	h.db, err = bolt.Open(srcPath, FilePerm, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	return nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
