package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/illarion/pwvault/internal/entry"
)

const shortIDLen = 8

// Ls lists entries sorted by title, optionally only those in category.
func Ls(ctx context.Context, a *App, category string) error {
	s, err := a.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer s.Lock()

	entries, err := s.List()
	if err != nil {
		return err
	}
	defer entry.WipeAll(entries)
	entry.SortByTitle(entries)

	shown := 0
	for _, e := range entries {
		if category != "" && !strings.EqualFold(e.Category, category) {
			continue
		}
		star := " "
		if e.Favorite {
			star = "*"
		}
		line := fmt.Sprintf("%s %-8s  %-24s  %s", star, shortID(e.ID), e.Title, e.Username)
		if e.Category != "" {
			line += fmt.Sprintf("  [%s]", e.Category)
		}
		fmt.Println(strings.TrimRight(line, " "))
		shown++
	}
	if shown == 0 {
		fmt.Println("(no entries)")
	}
	return nil
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}
