package entry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []Entry {
	created := time.Date(2024, 3, 1, 10, 0, 0, 123, time.UTC)
	return []Entry{
		{
			ID:        "b-2",
			Title:     "Bank",
			Username:  "alice",
			Secret:    []byte("s3cr3t"),
			Notes:     "pin is not here\nline two",
			CreatedAt: created,
			UpdatedAt: created.Add(time.Hour),
		},
		{
			ID:        "a-1",
			Title:     "Mail | with = delimiters",
			Username:  "bob\x00null",
			Email:     "bob@example.com",
			URL:       "https://mail.example.com",
			Category:  "personal",
			Favorite:  true,
			Secret:    []byte{0, 1, 2, 255},
			CreatedAt: created,
			UpdatedAt: created,
		},
		{ID: "c-3", Title: "Empty"},
	}
}

func sortByID(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := sampleEntries()
	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)

	sortByID(in)
	assert.Equal(t, in, out)
}

func TestEncodeSizedUpFront(t *testing.T) {
	in := sampleEntries()
	in = append(in, Entry{ID: "d-4", Secret: bytes.Repeat([]byte("x"), 64<<10)})

	var fields [][]field
	for i := range in {
		fields = append(fields, encodeFields(&in[i]))
	}
	data, err := Encode(in)
	require.NoError(t, err)
	assert.Equal(t, encodedSize(fields), len(data))
}

func TestLossyValues(t *testing.T) {
	in := []Entry{{ID: "e", Secret: []byte{}, CreatedAt: time.Unix(0, 0).UTC()}}
	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].CreatedAt.IsZero(), "epoch is stored as unset")
	assert.Nil(t, out[0].Secret, "empty secret is stored as unset")
}

func TestEncodeEmptySet(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 2, 0, 0, 0, 0}, data)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEncodeDeterministic(t *testing.T) {
	a := sampleEntries()
	b := sampleEntries()
	b[0], b[2] = b[2], b[0]

	da, err := Encode(a)
	require.NoError(t, err)
	db, err := Encode(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestEncodeRejectsBadIDs(t *testing.T) {
	_, err := Encode([]Entry{{ID: "x"}, {ID: "x"}})
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = Encode([]Entry{{Title: "no id"}})
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestRoundTripRandomSets(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	randString := func() string {
		b := make([]byte, rng.Intn(40))
		rng.Read(b)
		return string(b)
	}

	for round := 0; round < 50; round++ {
		n := rng.Intn(20)
		in := make([]Entry, n)
		for i := range in {
			in[i] = Entry{
				ID:        fmt.Sprintf("id-%d-%d", round, i),
				Title:     randString(),
				Username:  randString(),
				Email:     randString(),
				URL:       randString(),
				Category:  randString(),
				Notes:     randString(),
				Favorite:  rng.Intn(2) == 1,
				CreatedAt: time.Unix(0, rng.Int63()).UTC(),
				UpdatedAt: time.Unix(0, rng.Int63()).UTC(),
			}
			if s := randString(); s != "" {
				in[i].Secret = []byte(s)
			}
		}

		data, err := Encode(in)
		require.NoError(t, err)
		out, err := Decode(data)
		require.NoError(t, err)

		sortByID(in)
		if n == 0 {
			assert.Empty(t, out)
			continue
		}
		assert.Equal(t, in, out, "round %d", round)
	}
}

func TestDecodeTruncated(t *testing.T) {
	data, err := Encode(sampleEntries())
	require.NoError(t, err)

	for i := 0; i < len(data); i++ {
		_, err := Decode(data[:i])
		require.ErrorIs(t, err, ErrMalformed, "prefix of %d bytes", i)
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	data, err := Encode(sampleEntries())
	require.NoError(t, err)

	_, err = Decode(append(data, 0))
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Reason, "trailing")
}

func TestDecodeNewerSchema(t *testing.T) {
	data := []byte{0, 3, 0, 0, 0, 0}
	_, err := Decode(data)
	assert.ErrorIs(t, err, ErrUnsupportedSchema)
	assert.ErrorIs(t, err, ErrMalformed)
}

// v2Payload builds a schema 2 payload with a single entry made of fields.
func v2Payload(fields ...field) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint16(2))
	_ = binary.Write(&buf, binary.BigEndian, uint32(1))
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(fields)))
	for _, f := range fields {
		_ = binary.Write(&buf, binary.BigEndian, f.tag)
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(f.value)))
		buf.Write(f.value)
	}
	return buf.Bytes()
}

func TestDecodeUnknownFields(t *testing.T) {
	t.Run("optional tag is skipped", func(t *testing.T) {
		out, err := Decode(v2Payload(
			field{tagID, []byte("x")},
			field{tagTitle, []byte("T")},
			field{optionalTag | 0x0100, []byte("from the future")},
		))
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "T", out[0].Title)
	})

	t.Run("required tag fails", func(t *testing.T) {
		_, err := Decode(v2Payload(
			field{tagID, []byte("x")},
			field{0x0100, []byte("must understand")},
		))
		var fe *FormatError
		require.ErrorAs(t, err, &fe)
		assert.Contains(t, fe.Error(), "unknown required field")
	})

	t.Run("out of order", func(t *testing.T) {
		_, err := Decode(v2Payload(
			field{tagTitle, []byte("T")},
			field{tagID, []byte("x")},
		))
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := Decode(v2Payload(field{tagTitle, []byte("T")}))
		assert.ErrorIs(t, err, ErrMissingID)
	})

	t.Run("bad timestamp width", func(t *testing.T) {
		_, err := Decode(v2Payload(
			field{tagID, []byte("x")},
			field{tagCreated, []byte{1, 2, 3}},
		))
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestDecodeDuplicateIDs(t *testing.T) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint16(2))
	_ = binary.Write(&buf, binary.BigEndian, uint32(2))
	for i := 0; i < 2; i++ {
		_ = binary.Write(&buf, binary.BigEndian, uint16(1))
		_ = binary.Write(&buf, binary.BigEndian, tagID)
		_ = binary.Write(&buf, binary.BigEndian, uint32(1))
		buf.WriteByte('x')
	}
	_, err := Decode(buf.Bytes())
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestDecodeSchemaV1(t *testing.T) {
	created := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	writeStr := func(s string) {
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(s)))
		buf.WriteString(s)
	}
	_ = binary.Write(&buf, binary.BigEndian, uint16(1))
	_ = binary.Write(&buf, binary.BigEndian, uint32(1))
	writeStr("legacy-1")
	writeStr("Bank")
	writeStr("alice")
	writeStr("s3cr3t")
	writeStr("old notes")
	_ = binary.Write(&buf, binary.BigEndian, created.UnixNano())
	_ = binary.Write(&buf, binary.BigEndian, created.UnixNano())

	out, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, Entry{
		ID:        "legacy-1",
		Title:     "Bank",
		Username:  "alice",
		Secret:    []byte("s3cr3t"),
		Notes:     "old notes",
		CreatedAt: created,
		UpdatedAt: created,
	}, out[0])

	// Re-encoding upgrades to the current schema.
	data, err := Encode(out)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchema, binary.BigEndian.Uint16(data))
}

func TestCloneAndWipe(t *testing.T) {
	e := Entry{ID: "1", Secret: []byte("secret")}
	c := e.Clone()
	backing := e.Secret
	e.Wipe()

	assert.Nil(t, e.Secret)
	assert.Equal(t, make([]byte, 6), backing)
	assert.Equal(t, []byte("secret"), c.Secret)
}

func TestSortByTitle(t *testing.T) {
	entries := []Entry{{ID: "3", Title: "bank"}, {ID: "1", Title: "Zoo"}, {ID: "2", Title: "Bank"}}
	SortByTitle(entries)
	assert.Equal(t, []string{"2", "3", "1"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
}
