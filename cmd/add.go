package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/illarion/pwvault/internal/core"
	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/entry"
	"github.com/illarion/pwvault/internal/generator"
)

// EntryFields holds the entry attributes given on the command line. Nil
// fields were not given and are left alone.
type EntryFields struct {
	Title    *string
	Username *string
	Email    *string
	URL      *string
	Category *string
	Notes    *string
	Favorite *bool
}

func (f EntryFields) apply(e *entry.Entry) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&e.Title, f.Title)
	set(&e.Username, f.Username)
	set(&e.Email, f.Email)
	set(&e.URL, f.URL)
	set(&e.Category, f.Category)
	set(&e.Notes, f.Notes)
	if f.Favorite != nil {
		e.Favorite = *f.Favorite
	}
}

// SecretSource says where a new secret comes from.
type SecretSource struct {
	Generate bool
	Gen      generator.Options
}

func (src SecretSource) secret() ([]byte, error) {
	if src.Generate {
		return generator.Generate(src.Gen)
	}
	secret, err := core.ReadPassphrase("Secret: ")
	if err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("secret must not be empty")
	}
	return secret, nil
}

// Add stores a new entry and saves the vault.
func Add(ctx context.Context, a *App, fields EntryFields, src SecretSource) error {
	if fields.Title == nil || strings.TrimSpace(*fields.Title) == "" {
		return fmt.Errorf("a title is required (--title)")
	}

	secret, err := src.secret()
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(secret)

	s, err := a.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer s.Lock()

	var e entry.Entry
	fields.apply(&e)
	e.Secret = secret

	id, err := s.Put(e)
	if err != nil {
		return err
	}
	if err := Commit(ctx, s); err != nil {
		return err
	}

	fmt.Printf("✓ Added %s (%s)\n", e.Title, id)
	if src.Generate {
		fmt.Println("  secret generated; use 'pwvault get --show' to reveal it")
	}
	return nil
}
