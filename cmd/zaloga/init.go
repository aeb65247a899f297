package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/store"
)

const passphraseLength = 16

func newInitCmd(a *app) *cobra.Command {
	var reset bool

	c := &cobra.Command{
		Use:   "init",
		Short: "Create the schema and the operator passphrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			if _, err := store.GetJWTSecret(ctx, b.db); err != nil {
				return fmt.Errorf("getting jwt secret: %w", err)
			}

			_, err = store.GetPassphraseHash(ctx, b.db)
			switch {
			case err == nil && !reset:
				fmt.Fprintln(cmd.OutOrStdout(), "Already initialized. Use --reset-passphrase to replace the passphrase.")
				return nil
			case err != nil && !errors.Is(err, store.ErrSettingNotFound):
				return err
			}

			passphrase, err := setupPassphrase(ctx, b.db)
			if err != nil {
				return err
			}
			printPassphrase(cmd.OutOrStdout(), passphrase)
			return nil
		},
	}
	c.Flags().BoolVar(&reset, "reset-passphrase", false, "replace an existing passphrase")
	return c
}

// setupPassphrase generates a new operator passphrase and stores its hash.
func setupPassphrase(ctx context.Context, database *db.DB) (string, error) {
	passphrase, err := auth.GeneratePassphrase(passphraseLength)
	if err != nil {
		return "", fmt.Errorf("generating passphrase: %w", err)
	}
	hash, err := auth.HashPassphrase(passphrase)
	if err != nil {
		return "", fmt.Errorf("hashing passphrase: %w", err)
	}
	if err := store.SetPassphraseHash(ctx, database, hash); err != nil {
		return "", fmt.Errorf("storing passphrase: %w", err)
	}
	return passphrase, nil
}

func printPassphrase(w io.Writer, passphrase string) {
	fmt.Fprintln(w, "Operator passphrase created:")
	fmt.Fprintf(w, "  Passphrase: %s\n", passphrase)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Save this passphrase, it cannot be recovered.")
	fmt.Fprintln(w, "It can be changed after logging in through the API.")
}
