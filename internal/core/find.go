package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/illarion/pwvault/internal/entry"
)

// MinIDPrefix is the shortest id prefix Find accepts.
const MinIDPrefix = 4

var ErrAmbiguous = errors.New("query matches more than one entry")

// Find resolves query to a single entry. It tries, in order: the exact
// id, a unique id prefix of at least MinIDPrefix characters, and a unique
// case-insensitive title.
func (s *Session) Find(query string) (entry.Entry, error) {
	entries, err := s.List()
	if err != nil {
		return entry.Entry{}, err
	}
	defer entry.WipeAll(entries)

	e, err := findIn(entries, query)
	if err != nil {
		return entry.Entry{}, err
	}
	return e.Clone(), nil
}

func findIn(entries []entry.Entry, query string) (entry.Entry, error) {
	if query == "" {
		return entry.Entry{}, fmt.Errorf("%w: empty query", ErrNotFound)
	}
	for _, e := range entries {
		if e.ID == query {
			return e, nil
		}
	}

	var matches []entry.Entry
	if len(query) >= MinIDPrefix {
		for _, e := range entries {
			if strings.HasPrefix(e.ID, query) {
				matches = append(matches, e)
			}
		}
	}
	if len(matches) == 0 {
		for _, e := range entries {
			if strings.EqualFold(e.Title, query) {
				matches = append(matches, e)
			}
		}
	}

	switch len(matches) {
	case 0:
		return entry.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, query)
	case 1:
		return matches[0], nil
	}
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return entry.Entry{}, fmt.Errorf("%w: %s (%s)", ErrAmbiguous, query, strings.Join(ids, ", "))
}
