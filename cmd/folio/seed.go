package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blumotif/folio/internal/site"
)

func newSeedCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed default site content",
		Long: `Seed default site content into the store.

Only sections that do not already exist are written; existing
content is never overwritten.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kv, _, err := openClientStore(ctx, v, configFile)
			if err != nil {
				return err
			}
			defer func() { _ = kv.Close() }()

			n, err := site.Seed(ctx, kv)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d records\n", n)
			return nil
		},
	}

	bindStoreFlags(cmd, v, &configFile)
	return cmd
}
