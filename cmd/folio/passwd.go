package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/blumotif/folio/internal/auth"
)

func newPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Generate an admin password hash",
		Long: `Generate a bcrypt hash for the admin password.

Put the hash in the config file under admin.password_hash, or in the
FOLIO_ADMIN_PASSWORD_HASH environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			password, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if len(password) == 0 {
				return fmt.Errorf("empty password")
			}

			hash, err := auth.HashPassword(string(password))
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Fprintln(os.Stdout, hash)
			return nil
		},
	}
}
