package crypto

import (
	"errors"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
)

var ErrKeyDestroyed = errors.New("crypto: key destroyed")

// SecureKey holds a key encrypted at rest in process memory. The plaintext
// key only exists in a locked, guarded buffer for the duration of Use.
type SecureKey struct {
	mu      sync.Mutex
	enclave *memguard.Enclave
}

// NewSecureKey moves key into a SecureKey. The caller's slice is wiped.
func NewSecureKey(key []byte) (*SecureKey, error) {
	if len(key) != KeySize {
		memguard.WipeBytes(key)
		return nil, ErrInvalidKey
	}
	return &SecureKey{enclave: memguard.NewEnclave(key)}, nil
}

// Use calls fn with the plaintext key. fn must not retain the slice.
func (k *SecureKey) Use(fn func(key []byte) error) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.enclave == nil {
		return ErrKeyDestroyed
	}
	buf, err := k.enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to open key enclave: %w", err)
	}
	defer buf.Destroy()

	return fn(buf.Bytes())
}

// Destroy drops the enclave. Subsequent calls to Use fail with ErrKeyDestroyed.
func (k *SecureKey) Destroy() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.enclave = nil
}

// Destroyed reports whether Destroy has been called.
func (k *SecureKey) Destroyed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.enclave == nil
}
