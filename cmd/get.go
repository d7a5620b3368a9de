package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/illarion/pwvault/internal/entry"
)

// Get prints one entry. The secret is masked unless show is set; with
// secretOnly just the secret is written to stdout, for piping.
func Get(ctx context.Context, a *App, query string, show, secretOnly bool) error {
	s, err := a.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer s.Lock()

	e, err := s.Find(query)
	if err != nil {
		return err
	}
	defer e.Wipe()

	if secretOnly {
		os.Stdout.Write(e.Secret)
		fmt.Println()
		return nil
	}
	printEntry(e, show)
	return nil
}

func printEntry(e entry.Entry, show bool) {
	fmt.Printf("%s\n", e.Title)
	field := func(name, value string) {
		if value != "" {
			fmt.Printf("  %-9s %s\n", name+":", value)
		}
	}
	field("id", e.ID)
	field("username", e.Username)
	field("email", e.Email)
	field("url", e.URL)
	field("category", e.Category)
	if show {
		fmt.Printf("  %-9s %s\n", "secret:", e.Secret)
	} else if len(e.Secret) > 0 {
		fmt.Printf("  %-9s %s\n", "secret:", strings.Repeat("*", 8))
	}
	if e.Favorite {
		field("favorite", "yes")
	}
	field("created", formatTime(e.CreatedAt))
	field("updated", formatTime(e.UpdatedAt))
	if e.Notes != "" {
		fmt.Println("  notes:")
		for _, line := range strings.Split(e.Notes, "\n") {
			fmt.Printf("    %s\n", line)
		}
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}
