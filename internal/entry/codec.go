package entry

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	bin "github.com/saylorsolutions/binmap"
)

const (
	SchemaV1      uint16 = 1
	SchemaV2      uint16 = 2
	CurrentSchema        = SchemaV2

	MaxFieldSize = 16 << 20
	MaxEntries   = 1 << 20

	optionalTag uint16 = 0x8000
)

// Field tags of schema 2.
const (
	tagID       uint16 = 1
	tagTitle    uint16 = 2
	tagUsername uint16 = 3
	tagSecret   uint16 = 4
	tagNotes    uint16 = 5
	tagCreated  uint16 = 6
	tagUpdated  uint16 = 7
	tagEmail           = optionalTag | 8
	tagURL             = optionalTag | 9
	tagCategory        = optionalTag | 10
	tagFavorite        = optionalTag | 11
)

var byteOrder = binary.BigEndian

var (
	ErrMalformed         = errors.New("entry: malformed payload")
	ErrUnsupportedSchema = errors.New("entry: unsupported schema version")
	ErrDuplicateID       = errors.New("entry: duplicate id")
	ErrMissingID         = errors.New("entry: missing id")
)

// FormatError reports a payload that cannot be decoded exactly.
// errors.Is(err, ErrMalformed) holds for every FormatError.
type FormatError struct {
	Schema uint16
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("entry: malformed payload (schema %d): %s", e.Schema, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrMalformed }

type field struct {
	tag   uint16
	value []byte
}

// Encode serializes entries with the current schema. Entries are written in
// id order so that equal sets always produce equal bytes. The returned
// buffer contains secrets in plaintext and should be cleared after use.
//
// Two values do not survive a round trip exactly: a timestamp of exactly
// the Unix epoch decodes as the zero time, and an empty non-nil Secret
// decodes as nil. Both are stored as "unset".
func Encode(entries []Entry) ([]byte, error) {
	if len(entries) > MaxEntries {
		return nil, fmt.Errorf("entry: %d entries exceed the limit of %d", len(entries), MaxEntries)
	}

	sorted := make([]*Entry, len(entries))
	for i := range entries {
		sorted[i] = &entries[i]
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for i, e := range sorted {
		if e.ID == "" {
			return nil, ErrMissingID
		}
		if i > 0 && sorted[i-1].ID == e.ID {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
	}

	// The buffer is sized up front so it never reallocates: an abandoned
	// backing array would keep a plaintext copy nobody clears.
	encoded := make([][]field, len(sorted))
	for i, e := range sorted {
		encoded[i] = encodeFields(e)
		for _, f := range encoded[i] {
			if len(f.value) > MaxFieldSize {
				return nil, fmt.Errorf("entry: field %#x of %s exceeds %d bytes", f.tag, e.ID, MaxFieldSize)
			}
		}
	}

	var buf bytes.Buffer
	buf.Grow(encodedSize(encoded))
	schema := CurrentSchema
	count := uint32(len(sorted))
	if err := bin.MapSequence(bin.Int(&schema), bin.Int(&count)).Write(&buf, byteOrder); err != nil {
		return nil, fmt.Errorf("failed to write payload preamble: %w", err)
	}

	for i, e := range sorted {
		fields := encoded[i]
		n := uint16(len(fields))
		if err := bin.Int(&n).Write(&buf, byteOrder); err != nil {
			return nil, fmt.Errorf("failed to write entry %s: %w", e.ID, err)
		}
		for _, f := range fields {
			tag, size := f.tag, uint32(len(f.value))
			if err := bin.MapSequence(bin.Int(&tag), bin.Int(&size)).Write(&buf, byteOrder); err != nil {
				return nil, fmt.Errorf("failed to write entry %s: %w", e.ID, err)
			}
			buf.Write(f.value)
		}
	}
	return buf.Bytes(), nil
}

// encodedSize is the exact length Encode produces for the given fields.
func encodedSize(entries [][]field) int {
	n := 2 + 4
	for _, fields := range entries {
		n += 2
		for _, f := range fields {
			n += 2 + 4 + len(f.value)
		}
	}
	return n
}

// encodeFields returns the fields of e in ascending tag order.
// Optional fields are omitted when empty.
func encodeFields(e *Entry) []field {
	fields := []field{
		{tagID, []byte(e.ID)},
		{tagTitle, []byte(e.Title)},
		{tagUsername, []byte(e.Username)},
		{tagSecret, e.Secret},
		{tagNotes, []byte(e.Notes)},
		{tagCreated, encodeTime(e.CreatedAt)},
		{tagUpdated, encodeTime(e.UpdatedAt)},
	}
	if e.Email != "" {
		fields = append(fields, field{tagEmail, []byte(e.Email)})
	}
	if e.URL != "" {
		fields = append(fields, field{tagURL, []byte(e.URL)})
	}
	if e.Category != "" {
		fields = append(fields, field{tagCategory, []byte(e.Category)})
	}
	if e.Favorite {
		fields = append(fields, field{tagFavorite, []byte{1}})
	}
	return fields
}

// Decode parses a payload produced by Encode or by an older schema.
func Decode(data []byte) ([]Entry, error) {
	r := bytes.NewReader(data)

	var (
		schema uint16
		count  uint32
	)
	if err := bin.MapSequence(bin.Int(&schema), bin.Int(&count)).Read(r, byteOrder); err != nil {
		return nil, &FormatError{Reason: "truncated preamble", Err: err}
	}

	var decodeEntry func(*bytes.Reader) (Entry, error)
	switch schema {
	case SchemaV1:
		decodeEntry = decodeV1
	case SchemaV2:
		decodeEntry = decodeV2
	default:
		return nil, &FormatError{
			Schema: schema,
			Reason: fmt.Sprintf("supported schemas are %d..%d", SchemaV1, CurrentSchema),
			Err:    ErrUnsupportedSchema,
		}
	}

	if count > MaxEntries {
		return nil, &FormatError{Schema: schema, Reason: fmt.Sprintf("entry count %d exceeds %d", count, MaxEntries)}
	}

	entries := make([]Entry, 0, min(int(count), 1024))
	seen := make(map[string]struct{}, min(int(count), 1024))
	for i := uint32(0); i < count; i++ {
		e, err := decodeEntry(r)
		if err == nil {
			if _, dup := seen[e.ID]; dup {
				e.Wipe()
				err = fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
			}
		}
		if err != nil {
			WipeAll(entries)
			return nil, &FormatError{Schema: schema, Reason: fmt.Sprintf("entry %d", i), Err: err}
		}
		seen[e.ID] = struct{}{}
		entries = append(entries, e)
	}

	if r.Len() != 0 {
		WipeAll(entries)
		return nil, &FormatError{Schema: schema, Reason: fmt.Sprintf("%d trailing bytes", r.Len())}
	}
	return entries, nil
}

// decodeV1 reads the positional layout used before tagged fields.
func decodeV1(r *bytes.Reader) (e Entry, err error) {
	defer func() {
		if err != nil {
			e.Wipe()
		}
	}()

	if e.ID, err = readString(r); err != nil {
		return e, err
	}
	if e.ID == "" {
		return e, ErrMissingID
	}
	if e.Title, err = readString(r); err != nil {
		return e, err
	}
	if e.Username, err = readString(r); err != nil {
		return e, err
	}
	if e.Secret, err = readLenPrefixed(r); err != nil {
		return e, err
	}
	if e.Notes, err = readString(r); err != nil {
		return e, err
	}

	var created, updated uint64
	if err = bin.MapSequence(bin.Int(&created), bin.Int(&updated)).Read(r, byteOrder); err != nil {
		return e, fmt.Errorf("truncated timestamps: %w", err)
	}
	e.CreatedAt = decodeTime(int64(created))
	e.UpdatedAt = decodeTime(int64(updated))
	return e, nil
}

func decodeV2(r *bytes.Reader) (e Entry, err error) {
	defer func() {
		if err != nil {
			e.Wipe()
		}
	}()

	var n uint16
	if err = bin.Int(&n).Read(r, byteOrder); err != nil {
		return e, fmt.Errorf("truncated field count: %w", err)
	}

	var prev uint16
	for i := uint16(0); i < n; i++ {
		var (
			tag  uint16
			size uint32
		)
		if err = bin.MapSequence(bin.Int(&tag), bin.Int(&size)).Read(r, byteOrder); err != nil {
			return e, fmt.Errorf("truncated field header: %w", err)
		}
		if i > 0 && tag <= prev {
			return e, fmt.Errorf("field %#x out of order after %#x", tag, prev)
		}
		prev = tag

		value, err := readBytes(r, size)
		if err != nil {
			return e, err
		}
		if err := e.setField(tag, value); err != nil {
			return e, err
		}
	}

	if e.ID == "" {
		return e, ErrMissingID
	}
	return e, nil
}

func (e *Entry) setField(tag uint16, value []byte) error {
	switch tag {
	case tagID:
		e.ID = string(value)
	case tagTitle:
		e.Title = string(value)
	case tagUsername:
		e.Username = string(value)
	case tagSecret:
		e.Secret = value
	case tagNotes:
		e.Notes = string(value)
	case tagCreated, tagUpdated:
		if len(value) != 8 {
			return fmt.Errorf("timestamp field %#x has %d bytes", tag, len(value))
		}
		t := decodeTime(int64(byteOrder.Uint64(value)))
		if tag == tagCreated {
			e.CreatedAt = t
		} else {
			e.UpdatedAt = t
		}
	case tagEmail:
		e.Email = string(value)
	case tagURL:
		e.URL = string(value)
	case tagCategory:
		e.Category = string(value)
	case tagFavorite:
		if len(value) != 1 || value[0] > 1 {
			return fmt.Errorf("invalid favorite flag")
		}
		e.Favorite = value[0] == 1
	default:
		if tag&optionalTag == 0 {
			return fmt.Errorf("unknown required field %#x", tag)
		}
	}
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readLenPrefixed(r)
	return string(b), err
}

func readLenPrefixed(r *bytes.Reader) ([]byte, error) {
	var size uint32
	if err := bin.Int(&size).Read(r, byteOrder); err != nil {
		return nil, fmt.Errorf("truncated length: %w", err)
	}
	return readBytes(r, size)
}

// readBytes reads exactly size bytes. A zero size yields nil.
func readBytes(r *bytes.Reader, size uint32) ([]byte, error) {
	if size > MaxFieldSize {
		return nil, fmt.Errorf("field of %d bytes exceeds %d", size, MaxFieldSize)
	}
	if int64(size) > int64(r.Len()) {
		return nil, fmt.Errorf("truncated field: want %d bytes, have %d: %w", size, r.Len(), io.ErrUnexpectedEOF)
	}
	if size == 0 {
		return nil, nil
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// encodeTime stores t as Unix nanoseconds. 0 means unset.
func encodeTime(t time.Time) []byte {
	b := make([]byte, 8)
	if !t.IsZero() {
		byteOrder.PutUint64(b, uint64(t.UnixNano()))
	}
	return b
}

func decodeTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
