package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
	bin "github.com/saylorsolutions/binmap"

	"github.com/illarion/pwvault/internal/crypto"
)

const (
	Magic         = "PWVT"
	FormatVersion = uint16(1)

	maxSaltSize  = 255
	maxNonceSize = 255

	// Upper bounds on stored costs. A header above them is treated as
	// damaged rather than handed to the KDF.
	maxMemory      = 4 << 20 // KiB
	maxTime        = 1 << 10
	maxPBKDF2Iters = 50_000_000
)

var byteOrder = binary.BigEndian

// Header is the unencrypted prefix of a vault file. Its encoded form is the
// associated data of the payload, so every byte of it is authenticated.
type Header struct {
	Version uint16
	VaultID uuid.UUID
	KDF     crypto.KDFParams
	Nonce   []byte
}

// corruptError is a structural header problem. Callers outside the package
// only ever see crypto.ErrAuthFailed for it.
type corruptError struct {
	reason string
}

func (e *corruptError) Error() string { return "corrupt vault header: " + e.reason }

// MarshalBinary encodes h as
// magic | version u16 | vault id [16] | kdf u8 | memory u32 | time u32 |
// parallelism u8 | salt len u8 | salt | nonce len u8 | nonce.
func (h *Header) MarshalBinary() ([]byte, error) {
	if len(h.KDF.Salt) > maxSaltSize {
		return nil, fmt.Errorf("salt of %d bytes does not fit the header", len(h.KDF.Salt))
	}
	if len(h.Nonce) > maxNonceSize {
		return nil, fmt.Errorf("nonce of %d bytes does not fit the header", len(h.Nonce))
	}

	var (
		buf      bytes.Buffer
		version  = h.Version
		algo     = uint8(h.KDF.Algorithm)
		memory   = h.KDF.Memory
		passes   = h.KDF.Time
		par      = h.KDF.Parallelism
		saltLen  = uint8(len(h.KDF.Salt))
		nonceLen = uint8(len(h.Nonce))
	)

	buf.WriteString(Magic)
	if err := bin.Int(&version).Write(&buf, byteOrder); err != nil {
		return nil, err
	}
	buf.Write(h.VaultID[:])
	err := bin.MapSequence(
		bin.Byte(&algo),
		bin.Int(&memory),
		bin.Int(&passes),
		bin.Byte(&par),
		bin.Byte(&saltLen),
	).Write(&buf, byteOrder)
	if err != nil {
		return nil, err
	}
	buf.Write(h.KDF.Salt)
	if err := bin.Byte(&nonceLen).Write(&buf, byteOrder); err != nil {
		return nil, err
	}
	buf.Write(h.Nonce)
	return buf.Bytes(), nil
}

// parseHeader decodes the header at the start of data and returns it with
// its encoded length. A version newer than FormatVersion yields
// ErrUnsupportedVersion; anything else malformed is a *corruptError.
func parseHeader(data []byte) (*Header, int, error) {
	if len(data) < len(Magic) || string(data[:len(Magic)]) != Magic {
		return nil, 0, &corruptError{"bad magic"}
	}
	r := bytes.NewReader(data[len(Magic):])

	h := &Header{}
	if err := bin.Int(&h.Version).Read(r, byteOrder); err != nil {
		return nil, 0, &corruptError{"truncated version"}
	}
	if h.Version > FormatVersion {
		return nil, 0, fmt.Errorf("%w: %d (newest known is %d)", ErrUnsupportedVersion, h.Version, FormatVersion)
	}
	if h.Version == 0 {
		return nil, 0, &corruptError{"version 0"}
	}

	if _, err := io.ReadFull(r, h.VaultID[:]); err != nil {
		return nil, 0, &corruptError{"truncated vault id"}
	}

	var algo, saltLen, nonceLen uint8
	err := bin.MapSequence(
		bin.Byte(&algo),
		bin.Int(&h.KDF.Memory),
		bin.Int(&h.KDF.Time),
		bin.Byte(&h.KDF.Parallelism),
		bin.Byte(&saltLen),
	).Read(r, byteOrder)
	if err != nil {
		return nil, 0, &corruptError{"truncated kdf parameters"}
	}
	h.KDF.Algorithm = crypto.KDFAlgorithm(algo)

	if h.KDF.Salt, err = readExact(r, int(saltLen)); err != nil {
		return nil, 0, &corruptError{"truncated salt"}
	}
	if err := bin.Byte(&nonceLen).Read(r, byteOrder); err != nil {
		return nil, 0, &corruptError{"truncated nonce length"}
	}
	if h.Nonce, err = readExact(r, int(nonceLen)); err != nil {
		return nil, 0, &corruptError{"truncated nonce"}
	}

	if err := checkBounds(h.KDF); err != nil {
		return nil, 0, err
	}
	return h, len(data) - r.Len(), nil
}

func checkBounds(p crypto.KDFParams) error {
	switch p.Algorithm {
	case crypto.KDFArgon2id:
		if p.Memory > maxMemory || p.Time > maxTime {
			return &corruptError{fmt.Sprintf("argon2id cost m=%d t=%d out of range", p.Memory, p.Time)}
		}
	case crypto.KDFPBKDF2:
		if p.Time > maxPBKDF2Iters {
			return &corruptError{fmt.Sprintf("pbkdf2 iterations %d out of range", p.Time)}
		}
	}
	return nil
}

func readExact(r *bytes.Reader, n int) ([]byte, error) {
	if r.Len() < n {
		return nil, fmt.Errorf("want %d bytes, have %d", n, r.Len())
	}
	b := make([]byte, n)
	_, err := io.ReadFull(r, b)
	return b, err
}
