package entry

import (
	"sort"
	"strings"
	"time"
)

// Entry is a single credential stored in a vault.
type Entry struct {
	ID        string
	Title     string
	Username  string
	Email     string
	URL       string
	Category  string
	Notes     string
	Secret    []byte
	Favorite  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of e. The secret is copied so the clone
// survives a later Wipe of the original.
func (e Entry) Clone() Entry {
	if e.Secret != nil {
		e.Secret = append([]byte(nil), e.Secret...)
	}
	return e
}

// Wipe zeroes the secret in place and drops it.
func (e *Entry) Wipe() {
	for i := range e.Secret {
		e.Secret[i] = 0
	}
	e.Secret = nil
}

// SortByTitle sorts entries case-insensitively by title, then by id.
func SortByTitle(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := strings.ToLower(entries[i].Title), strings.ToLower(entries[j].Title)
		if ti != tj {
			return ti < tj
		}
		return entries[i].ID < entries[j].ID
	})
}

// WipeAll wipes the secret of every entry.
func WipeAll(entries []Entry) {
	for i := range entries {
		entries[i].Wipe()
	}
}
