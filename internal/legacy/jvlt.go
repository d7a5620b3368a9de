package legacy

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/entry"
)

const (
	Magic      = "JVLT"
	Version    = 1
	Iterations = 600_000
	KeySize    = 32
)

var (
	ErrNotJVLT            = errors.New("legacy: not a JVLT vault")
	ErrUnsupportedVersion = errors.New("legacy: unsupported JVLT version")
)

// Vault is the content of a JVLT file.
type Vault struct {
	Name         string
	LastModified time.Time
	Entries      []entry.Entry
}

type jsonVault struct {
	VaultName    string      `json:"vaultName"`
	Entries      []jsonEntry `json:"entries"`
	LastModified int64       `json:"lastModified"`
}

type jsonEntry struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Category  string `json:"category"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// ReadFile opens the JVLT vault at path.
func ReadFile(path string, passphrase []byte) (*Vault, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JVLT file: %w", err)
	}
	return Parse(data, passphrase)
}

// Parse decrypts a JVLT vault: magic, version byte, salt and IV each
// prefixed by a length byte, then AES-256-GCM ciphertext of a JSON
// document. The key is PBKDF2-HMAC-SHA256 with 600000 iterations.
// A wrong passphrase yields crypto.ErrAuthFailed.
func Parse(data, passphrase []byte) (*Vault, error) {
	if len(passphrase) == 0 {
		return nil, crypto.ErrEmptyPassphrase
	}
	r := bytes.NewReader(data)

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != Magic {
		return nil, ErrNotJVLT
	}
	version, err := r.ReadByte()
	if err != nil {
		return nil, ErrNotJVLT
	}
	if version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	salt, err := readPrefixed(r)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated salt", ErrNotJVLT)
	}
	iv, err := readPrefixed(r)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated iv", ErrNotJVLT)
	}
	ciphertext := data[len(data)-r.Len():]

	key := deriveKey(passphrase, salt)
	defer crypto.ClearBytes(key)

	gcm, err := newGCM(key, len(iv))
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, crypto.ErrAuthFailed
	}
	defer crypto.ClearBytes(plaintext)

	var doc jsonVault
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JVLT payload: %w", err)
	}
	return convert(doc), nil
}

func convert(doc jsonVault) *Vault {
	v := &Vault{Name: doc.VaultName, LastModified: fromMillis(doc.LastModified)}
	seen := make(map[string]bool, len(doc.Entries))
	for _, je := range doc.Entries {
		id := je.ID
		if id == "" || seen[id] {
			id = uuid.NewString()
		}
		seen[id] = true

		e := entry.Entry{
			ID:        id,
			Title:     je.Label,
			Username:  je.Username,
			Email:     je.Email,
			Category:  je.Category,
			CreatedAt: fromMillis(je.CreatedAt),
			UpdatedAt: fromMillis(je.UpdatedAt),
		}
		if je.Password != "" {
			e.Secret = []byte(je.Password)
		}
		v.Entries = append(v.Entries, e)
	}
	return v
}

func deriveKey(passphrase, salt []byte) []byte {
	return pbkdf2.Key(passphrase, salt, Iterations, KeySize, sha256.New)
}

func newGCM(key []byte, ivSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	if ivSize == 12 {
		return cipher.NewGCM(block)
	}
	if ivSize == 0 {
		return nil, fmt.Errorf("%w: empty iv", ErrNotJVLT)
	}
	return cipher.NewGCMWithNonceSize(block, ivSize)
}

func readPrefixed(r *bytes.Reader) ([]byte, error) {
	n, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
