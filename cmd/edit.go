package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/pwvault/internal/crypto"
)

// Edit updates the given fields of one entry. With newSecret the secret is
// replaced from src.
func Edit(ctx context.Context, a *App, query string, fields EntryFields, newSecret bool, src SecretSource) error {
	var secret []byte
	if newSecret {
		var err error
		if secret, err = src.secret(); err != nil {
			return err
		}
		defer crypto.ClearBytes(secret)
	}

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

	fields.apply(&e)
	if newSecret {
		crypto.ClearBytes(e.Secret)
		e.Secret = secret
	}
	if _, err := s.Put(e); err != nil {
		return err
	}
	if err := Commit(ctx, s); err != nil {
		return err
	}
	fmt.Printf("✓ Updated %s\n", e.Title)
	return nil
}
