package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	NonceSize = chacha20poly1305.NonceSizeX // XChaCha20-Poly1305 nonce size
	TagSize   = chacha20poly1305.Overhead   // Poly1305 authentication tag size
)

var (
	ErrInvalidKey = errors.New("crypto: invalid key size")
	// ErrAuthFailed covers a wrong key and tampered or truncated data alike.
	ErrAuthFailed = errors.New("crypto: authentication failed")
)

// Seal encrypts and authenticates plaintext and authenticates ad.
// The nonce must never be reused with the same key.
func Seal(key, nonce, ad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, ErrInvalidKey
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("crypto: nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}
	return aead.Seal(nil, nonce, plaintext, ad), nil
}

// Open authenticates ciphertext and ad and returns the plaintext.
// Any mismatch yields ErrAuthFailed and no plaintext.
func Open(key, nonce, ad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, ErrInvalidKey
	}
	if len(nonce) != NonceSize || len(ciphertext) < TagSize {
		return nil, ErrAuthFailed
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, ad)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// NewNonce returns a fresh random nonce.
func NewNonce() ([]byte, error) {
	return GenerateRandom(NonceSize)
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
