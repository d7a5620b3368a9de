package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// floorParams are the cheapest parameters that pass Validate.
func floorParams(t *testing.T) KDFParams {
	t.Helper()
	p, err := DefaultKDFParams()
	require.NoError(t, err)
	p.Memory = MinMemory
	p.Time = MinTime
	p.Parallelism = 1
	return p
}

func TestDefaultKDFParams(t *testing.T) {
	p, err := DefaultKDFParams()
	require.NoError(t, err)
	assert.Equal(t, KDFArgon2id, p.Algorithm)
	assert.Len(t, p.Salt, SaltSize)
	assert.Equal(t, uint32(DefaultMemory), p.Memory)
	assert.Equal(t, uint32(DefaultTime), p.Time)
	assert.Equal(t, uint8(DefaultParallelism), p.Parallelism)
	assert.NoError(t, p.Validate())

	strong, err := StrongKDFParams()
	require.NoError(t, err)
	assert.Greater(t, strong.Memory, p.Memory)
	assert.NotEqual(t, p.Salt, strong.Salt)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	p := floorParams(t)
	k1, err := DeriveKey([]byte("correct-horse"), p)
	require.NoError(t, err)
	k2, err := DeriveKey([]byte("correct-horse"), p.Clone())
	require.NoError(t, err)
	assert.Len(t, k1, KeySize)
	assert.True(t, bytes.Equal(k1, k2))

	k3, err := DeriveKey([]byte("wrong-pw"), p)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(k1, k3))

	salted, err := p.WithFreshSalt()
	require.NoError(t, err)
	k4, err := DeriveKey([]byte("correct-horse"), salted)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(k1, k4))
}

func TestDeriveKeyPBKDF2(t *testing.T) {
	p := floorParams(t)
	p.Algorithm = KDFPBKDF2
	p.Time = MinPBKDF2Iters
	k, err := DeriveKey([]byte("pw"), p)
	require.NoError(t, err)
	assert.Len(t, k, KeySize)
}

func TestDeriveKeyEmptyPassphrase(t *testing.T) {
	_, err := DeriveKey(nil, floorParams(t))
	assert.ErrorIs(t, err, ErrEmptyPassphrase)
}

func TestValidateWeakParameters(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*KDFParams)
		field string
	}{
		{"short salt", func(p *KDFParams) { p.Salt = p.Salt[:8] }, "salt length"},
		{"low memory", func(p *KDFParams) { p.Memory = 1024 }, "memory"},
		{"low time", func(p *KDFParams) { p.Time = 1 }, "time"},
		{"zero parallelism", func(p *KDFParams) { p.Parallelism = 0 }, "parallelism"},
		{"few pbkdf2 iterations", func(p *KDFParams) { p.Algorithm = KDFPBKDF2; p.Time = 1000 }, "iterations"},
		{"unknown algorithm", func(p *KDFParams) { p.Algorithm = 9 }, "algorithm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := floorParams(t)
			tt.mod(&p)

			err := p.Validate()
			var weak *WeakParameterError
			require.ErrorAs(t, err, &weak)
			assert.Equal(t, tt.field, weak.Field)

			_, err = DeriveKey([]byte("pw"), p)
			assert.ErrorAs(t, err, &weak)
		})
	}
}
