package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "folio",
		Short: "Portfolio site backend",
		Long: `Folio - realtime portfolio site backend.

Server commands:
  folio serve              Run the HTTP API server
  folio seed               Seed default site content

Content commands:
  folio blob put <file>    Store a file in the blob store
  folio blob get <key>     Retrieve a stored file
  folio blob rm <key>      Delete a stored file

Admin commands:
  folio passwd             Generate an admin password hash
  folio dashboard          Interactive content editor`,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newBlobCmd())
	rootCmd.AddCommand(newPasswdCmd())
	rootCmd.AddCommand(newDashboardCmd())

	return rootCmd
}
