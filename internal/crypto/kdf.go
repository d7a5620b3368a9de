package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// KDFAlgorithm identifies the key derivation function stored in a vault header.
type KDFAlgorithm uint8

const (
	KDFArgon2id KDFAlgorithm = 1
	KDFPBKDF2   KDFAlgorithm = 2
)

func (a KDFAlgorithm) String() string {
	switch a {
	case KDFArgon2id:
		return "argon2id"
	case KDFPBKDF2:
		return "pbkdf2-sha256"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

const (
	SaltSize = 32 // Salt size in bytes
	KeySize  = 32 // Derived key size

	DefaultMemory      = 64 * 1024 // KiB
	DefaultTime        = 3
	DefaultParallelism = 4

	StrongMemory = 256 * 1024 // KiB
	StrongTime   = 4

	// Safety floor, below which DeriveKey refuses to run.
	MinMemory      = 19 * 1024 // KiB, OWASP Argon2id minimum
	MinTime        = 2
	MinParallelism = 1
	MinSaltSize    = 16
	MinPBKDF2Iters = 210000 // OWASP minimum for PBKDF2-HMAC-SHA256
)

var ErrEmptyPassphrase = errors.New("crypto: empty passphrase")

// WeakParameterError reports a KDF parameter below the safety floor.
type WeakParameterError struct {
	Field string
	Got   uint64
	Min   uint64
}

func (e *WeakParameterError) Error() string {
	if e.Min == 0 {
		return fmt.Sprintf("crypto: unsupported kdf %s %d", e.Field, e.Got)
	}
	return fmt.Sprintf("crypto: kdf %s %d is below the minimum of %d", e.Field, e.Got, e.Min)
}

// KDFParams are the per-vault key derivation parameters. They are persisted
// in the vault header so that later unlocks use exactly the same costs.
// For PBKDF2 Time holds the iteration count and Memory/Parallelism are unused.
type KDFParams struct {
	Algorithm   KDFAlgorithm
	Salt        []byte
	Memory      uint32
	Time        uint32
	Parallelism uint8
}

// DefaultKDFParams returns Argon2id parameters with a fresh random salt.
func DefaultKDFParams() (KDFParams, error) {
	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return KDFParams{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	return KDFParams{
		Algorithm:   KDFArgon2id,
		Salt:        salt,
		Memory:      DefaultMemory,
		Time:        DefaultTime,
		Parallelism: DefaultParallelism,
	}, nil
}

// StrongKDFParams returns Argon2id parameters for new vaults on machines
// that can afford a slower unlock.
func StrongKDFParams() (KDFParams, error) {
	p, err := DefaultKDFParams()
	if err != nil {
		return KDFParams{}, err
	}
	p.Memory = StrongMemory
	p.Time = StrongTime
	return p, nil
}

// WithFreshSalt returns a copy of p with a new random salt. The costs are kept.
func (p KDFParams) WithFreshSalt() (KDFParams, error) {
	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return KDFParams{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	p.Salt = salt
	return p, nil
}

// Validate checks p against the safety floor.
func (p KDFParams) Validate() error {
	if len(p.Salt) < MinSaltSize {
		return &WeakParameterError{Field: "salt length", Got: uint64(len(p.Salt)), Min: MinSaltSize}
	}
	switch p.Algorithm {
	case KDFArgon2id:
		if p.Memory < MinMemory {
			return &WeakParameterError{Field: "memory", Got: uint64(p.Memory), Min: MinMemory}
		}
		if p.Time < MinTime {
			return &WeakParameterError{Field: "time", Got: uint64(p.Time), Min: MinTime}
		}
		if p.Parallelism < MinParallelism {
			return &WeakParameterError{Field: "parallelism", Got: uint64(p.Parallelism), Min: MinParallelism}
		}
	case KDFPBKDF2:
		if p.Time < MinPBKDF2Iters {
			return &WeakParameterError{Field: "iterations", Got: uint64(p.Time), Min: MinPBKDF2Iters}
		}
	default:
		return &WeakParameterError{Field: "algorithm", Got: uint64(p.Algorithm)}
	}
	return nil
}

// DeriveKey derives a KeySize key from passphrase. The result is deterministic
// for identical inputs. The caller owns the returned slice and should clear it.
func DeriveKey(passphrase []byte, p KDFParams) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch p.Algorithm {
	case KDFPBKDF2:
		return pbkdf2.Key(passphrase, p.Salt, int(p.Time), KeySize, sha256.New), nil
	default:
		return argon2.IDKey(passphrase, p.Salt, p.Time, p.Memory, p.Parallelism, KeySize), nil
	}
}

// Clone returns a deep copy of p.
func (p KDFParams) Clone() KDFParams {
	p.Salt = append([]byte(nil), p.Salt...)
	return p
}
