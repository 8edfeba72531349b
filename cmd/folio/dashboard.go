package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blumotif/folio/cmd/folio/dashboard"
	"github.com/blumotif/folio/internal/admin"
	"github.com/blumotif/folio/internal/blobstore"
	"github.com/blumotif/folio/internal/observability"
)

func newDashboardCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Interactive content editor",
		Long: `Open an interactive terminal editor for site content.

Edits go through the same staged-save flow as the HTTP admin API:
field edits are buffered locally and written with ctrl+s. The
dashboard talks to the store directly, so no admin password is
needed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kv, _, err := openClientStore(ctx, v, configFile)
			if err != nil {
				return err
			}
			defer func() { _ = kv.Close() }()

			metrics := observability.NewMetrics()
			blobs := blobstore.New(kv, metrics)
			editor := admin.NewEditor(kv, blobs, nil, metrics)

			return dashboard.Run(ctx, kv, editor)
		},
	}

	bindStoreFlags(cmd, v, &configFile)
	return cmd
}
