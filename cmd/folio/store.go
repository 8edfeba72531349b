package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blumotif/folio/internal/config"
	"github.com/blumotif/folio/internal/kvstore"
	"github.com/blumotif/folio/internal/kvstore/physical"
	"github.com/blumotif/folio/internal/observability"

	// Register storage backends.
	_ "github.com/blumotif/folio/internal/kvstore/physical/badger"
	_ "github.com/blumotif/folio/internal/kvstore/physical/memory"
	_ "github.com/blumotif/folio/internal/kvstore/physical/redis"
	_ "github.com/blumotif/folio/internal/kvstore/physical/s3"
	_ "github.com/blumotif/folio/internal/kvstore/physical/sqlite"
)

// bindStoreFlags binds the flags shared by commands that open the
// store directly.
func bindStoreFlags(cmd *cobra.Command, v *viper.Viper, configFile *string) {
	f := cmd.Flags()
	f.String("data-dir", "", "data directory (default ~/.folio)")
	f.String("backend", "", "storage backend (memory, badger, sqlite, redis, s3)")
	f.StringVar(configFile, "config", "", "config file path")

	_ = v.BindPFlag("data_dir", f.Lookup("data-dir"))
	_ = v.BindPFlag("storage.backend", f.Lookup("backend"))
}

// openBackend builds the configured physical backend, defaulting
// file-backed backends into the data directory.
func openBackend(ctx context.Context, cfg config.Config) (physical.Backend, error) {
	backendCfg := cfg.Storage.Config
	if backendCfg == nil {
		backendCfg = make(map[string]string)
	}
	if backendCfg["path"] == "" {
		switch cfg.Storage.Backend {
		case "badger":
			backendCfg["path"] = filepath.Join(cfg.DataDir, "data")
		case "sqlite":
			backendCfg["path"] = filepath.Join(cfg.DataDir, "folio.db")
		}
	}

	backend, err := physical.New(ctx, cfg.Storage.Backend, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Storage.Backend, err)
	}
	return backend, nil
}

// openClientStore opens the configured backend directly for one-shot
// client commands (seed, blob, dashboard).
func openClientStore(ctx context.Context, v *viper.Viper, configFile string) (*kvstore.Store, config.Config, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("load config: %w", err)
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, config.Config{}, err
	}

	kv := kvstore.New(backend, observability.NewMetrics(), kvstore.SubscriptionConfig{})
	return kv, cfg, nil
}
