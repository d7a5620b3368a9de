package kdbx

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tobischo/gokeepasslib/v3"
	w "github.com/tobischo/gokeepasslib/v3/wrappers"

	"github.com/illarion/pwvault/internal/entry"
)

// RecycleBinName is the group KeePass moves deleted entries into.
const RecycleBinName = "Recycle Bin"

// Standard KeePass field keys.
const (
	FieldTitle    = "Title"
	FieldUserName = "UserName"
	FieldPassword = "Password"
	FieldURL      = "URL"
	FieldNotes    = "Notes"
)

// ReadFile opens and decrypts the KeePass database at path and returns its entries.
func ReadFile(path string, password string) ([]entry.Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open KDBX file %s: %w", path, err)
	}
	defer file.Close()

	return Decode(file, password)
}

// Decode reads a KeePass database from r. Entries are flattened; the name of
// the group holding an entry becomes its category, and the top-level group
// maps to no category. The recycle bin is skipped.
func Decode(r io.Reader, password string) ([]entry.Entry, error) {
	db := gokeepasslib.NewDatabase()
	db.Credentials = gokeepasslib.NewPasswordCredentials(password)

	if err := gokeepasslib.NewDecoder(r).Decode(db); err != nil {
		return nil, fmt.Errorf("failed to decode KDBX database: %w", err)
	}
	if err := db.UnlockProtectedEntries(); err != nil {
		return nil, fmt.Errorf("failed to unlock protected fields: %w", err)
	}
	if db.Content == nil || db.Content.Root == nil {
		return nil, nil
	}

	c := &collector{seen: make(map[string]bool)}
	for _, g := range db.Content.Root.Groups {
		c.walk(g, "")
	}
	return c.out, nil
}

type collector struct {
	out  []entry.Entry
	seen map[string]bool
}

func (c *collector) walk(g gokeepasslib.Group, category string) {
	if g.Name == RecycleBinName {
		return
	}
	for _, e := range g.Entries {
		c.out = append(c.out, convert(e, category, c.seen))
	}
	for _, sub := range g.Groups {
		c.walk(sub, sub.Name)
	}
}

func convert(ke gokeepasslib.Entry, category string, seen map[string]bool) entry.Entry {
	id := uuid.UUID(ke.UUID).String()
	if ke.UUID == (gokeepasslib.UUID{}) || seen[id] {
		id = uuid.NewString()
	}
	seen[id] = true

	e := entry.Entry{
		ID:        id,
		Title:     ke.GetContent(FieldTitle),
		Username:  ke.GetContent(FieldUserName),
		URL:       ke.GetContent(FieldURL),
		Category:  category,
		CreatedAt: timeOf(ke.Times.CreationTime),
		UpdatedAt: timeOf(ke.Times.LastModificationTime),
	}
	if pw := ke.GetPassword(); pw != "" {
		e.Secret = []byte(pw)
	}

	notes := ke.GetContent(FieldNotes)
	if extra := customFields(ke); extra != "" {
		if notes != "" {
			notes += "\n\n"
		}
		notes += extra
	}
	e.Notes = notes
	return e
}

// customFields renders non-standard string fields as "key: value" lines.
func customFields(ke gokeepasslib.Entry) string {
	var lines []string
	for _, v := range ke.Values {
		switch v.Key {
		case FieldTitle, FieldUserName, FieldPassword, FieldURL, FieldNotes:
			continue
		}
		if v.Value.Content == "" {
			continue
		}
		lines = append(lines, v.Key+": "+v.Value.Content)
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func timeOf(t *w.TimeWrapper) time.Time {
	if t == nil || t.Time.IsZero() {
		return time.Time{}
	}
	return t.Time.UTC()
}
