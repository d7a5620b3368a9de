package cmd

import (
	"context"
	"fmt"
)

// Remove deletes the entries matching queries and saves the vault. Without
// force it asks before deleting.
func Remove(ctx context.Context, a *App, queries []string, force bool) error {
	if len(queries) == 0 {
		return fmt.Errorf("no entries given")
	}

	s, err := a.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer s.Lock()

	removed := 0
	for _, q := range queries {
		e, err := s.Find(q)
		if err != nil {
			return err
		}
		e.Wipe()
		if !force && !Confirm(fmt.Sprintf("Delete %s (%s)?", e.Title, shortID(e.ID))) {
			continue
		}
		if err := s.Delete(e.ID); err != nil {
			return err
		}
		fmt.Printf("✓ Removed %s\n", e.Title)
		removed++
	}
	if removed == 0 {
		return nil
	}
	return Commit(ctx, s)
}
