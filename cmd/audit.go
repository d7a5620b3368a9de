package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/illarion/pwvault/internal/core"
	"github.com/illarion/pwvault/internal/entry"
)

// Audit reports weak, reused and old secrets. It returns an error when
// anything was found so scripts can check the exit status.
func Audit(ctx context.Context, a *App) error {
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

	titles := make(map[string]string, len(entries))
	for _, e := range entries {
		titles[e.ID] = fmt.Sprintf("%s (%s)", e.Title, shortID(e.ID))
	}
	names := func(ids []string) []string {
		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = titles[id]
		}
		return out
	}

	report, err := s.Audit()
	if err != nil {
		return err
	}
	if report.Clean() {
		fmt.Printf("✓ %d entries, no issues found\n", len(entries))
		return nil
	}

	if len(report.Weak) > 0 {
		fmt.Printf("Weak secrets (shorter than %d or fewer than %d character classes):\n",
			core.MinStrongLength, core.MinStrongClasses)
		for _, n := range names(report.Weak) {
			fmt.Printf("  ! %s\n", n)
		}
	}
	if len(report.Reused) > 0 {
		fmt.Println("Reused secrets:")
		for _, group := range report.Reused {
			fmt.Printf("  ! %s\n", strings.Join(names(group), ", "))
		}
	}
	if len(report.Old) > 0 {
		fmt.Printf("Secrets older than %d days:\n", int(core.MaxSecretAge.Hours()/24))
		for _, n := range names(report.Old) {
			fmt.Printf("  ! %s\n", n)
		}
	}
	return fmt.Errorf("audit found %d issue(s)", len(report.Weak)+len(report.Reused)+len(report.Old))
}
