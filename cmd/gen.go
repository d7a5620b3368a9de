package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/generator"
)

// Gen prints count generated passwords. It does not touch the vault.
func Gen(opts generator.Options, count int) error {
	if count < 1 {
		count = 1
	}
	for i := 0; i < count; i++ {
		pw, err := generator.Generate(opts)
		if err != nil {
			return err
		}
		os.Stdout.Write(pw)
		fmt.Println()
		crypto.ClearBytes(pw)
	}
	return nil
}
