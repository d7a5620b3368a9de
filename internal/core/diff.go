package core

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/entry"
)

// ChangeKind classifies an entry in an EntryDiff.
type ChangeKind int

const (
	Added ChangeKind = iota
	Removed
	Changed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "changed"
	}
}

// EntryChange is one differing entry between two entry sets.
type EntryChange struct {
	Kind  ChangeKind
	ID    string
	Title string
	// Fields names the changed fields. The secret is reported as changed
	// but never shown.
	Fields []string
	// NotesPatch is a unified patch of the notes, empty if they are equal.
	NotesPatch string
}

// DiffEntries compares two entry sets by id. Changes are sorted by title,
// then id.
func DiffEntries(from, to []entry.Entry) []EntryChange {
	old := make(map[string]entry.Entry, len(from))
	for _, e := range from {
		old[e.ID] = e
	}

	var changes []EntryChange
	seen := make(map[string]bool, len(to))
	for _, e := range to {
		seen[e.ID] = true
		prev, ok := old[e.ID]
		if !ok {
			changes = append(changes, EntryChange{Kind: Added, ID: e.ID, Title: e.Title})
			continue
		}
		fields := changedFields(prev, e)
		if len(fields) == 0 {
			continue
		}
		c := EntryChange{Kind: Changed, ID: e.ID, Title: e.Title, Fields: fields}
		if prev.Notes != e.Notes {
			c.NotesPatch = notesPatch(prev.Notes, e.Notes)
		}
		changes = append(changes, c)
	}
	for _, e := range from {
		if !seen[e.ID] {
			changes = append(changes, EntryChange{Kind: Removed, ID: e.ID, Title: e.Title})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		ti, tj := strings.ToLower(changes[i].Title), strings.ToLower(changes[j].Title)
		if ti != tj {
			return ti < tj
		}
		return changes[i].ID < changes[j].ID
	})
	return changes
}

func changedFields(a, b entry.Entry) []string {
	var fields []string
	add := func(name string, differ bool) {
		if differ {
			fields = append(fields, name)
		}
	}
	add("title", a.Title != b.Title)
	add("username", a.Username != b.Username)
	add("email", a.Email != b.Email)
	add("url", a.URL != b.URL)
	add("category", a.Category != b.Category)
	add("favorite", a.Favorite != b.Favorite)
	add("secret", len(a.Secret) != len(b.Secret) || !crypto.ConstantTimeCompare(a.Secret, b.Secret))
	add("notes", a.Notes != b.Notes)
	return fields
}

// notesPatch returns a line based patch from a to b.
func notesPatch(a, b string) string {
	dmp := diffmatchpatch.New()

	// Line-mode diff for readable output
	ca, cb, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(ca, cb, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(a, diffs)
	if len(patches) == 0 {
		return ""
	}
	return dmp.PatchToText(patches)
}

// FormatChanges renders changes the way `pwvault history diff` prints them.
func FormatChanges(changes []EntryChange) string {
	var buf bytes.Buffer
	for _, c := range changes {
		switch c.Kind {
		case Added:
			fmt.Fprintf(&buf, "+ %s (%s)\n", c.Title, c.ID)
		case Removed:
			fmt.Fprintf(&buf, "- %s (%s)\n", c.Title, c.ID)
		case Changed:
			fmt.Fprintf(&buf, "~ %s (%s): %s\n", c.Title, c.ID, strings.Join(c.Fields, ", "))
			if c.NotesPatch != "" {
				for _, line := range strings.Split(strings.TrimRight(c.NotesPatch, "\n"), "\n") {
					fmt.Fprintf(&buf, "    %s\n", line)
				}
			}
		}
	}
	return buf.String()
}
