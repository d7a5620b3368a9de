package core

import (
	"errors"
	"testing"

	"github.com/illarion/pwvault/internal/entry"
)

func TestFind(t *testing.T) {
	s, _ := unlocked(t)

	for _, e := range []entry.Entry{
		{ID: "aaaa1111", Title: "Bank"},
		{ID: "aaaa2222", Title: "Mail"},
		{ID: "bbbb3333", Title: "mail"},
	} {
		if _, err := s.Put(e); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	tests := []struct {
		query string
		want  string
		err   error
	}{
		{query: "aaaa1111", want: "aaaa1111"},
		{query: "aaaa1", want: "aaaa1111"},
		{query: "bbbb", want: "bbbb3333"},
		{query: "bank", want: "aaaa1111"},
		{query: "BANK", want: "aaaa1111"},
		{query: "aaaa", err: ErrAmbiguous},
		{query: "Mail", err: ErrAmbiguous},
		{query: "aaa", err: ErrNotFound},
		{query: "nothing", err: ErrNotFound},
		{query: "", err: ErrNotFound},
	}
	for _, tt := range tests {
		got, err := s.Find(tt.query)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Errorf("Find(%q): expected %v, got %v", tt.query, tt.err, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Find(%q) failed: %v", tt.query, err)
			continue
		}
		if got.ID != tt.want {
			t.Errorf("Find(%q) = %s, want %s", tt.query, got.ID, tt.want)
		}
	}
}

func TestFindLocked(t *testing.T) {
	_, store := newVault(t)
	s := New(store)
	if _, err := s.Find("x"); !errors.Is(err, ErrLocked) {
		t.Errorf("Expected ErrLocked, got %v", err)
	}
}
