package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blumotif/folio/internal/admin"
	"github.com/blumotif/folio/internal/auth"
	"github.com/blumotif/folio/internal/blobstore"
	"github.com/blumotif/folio/internal/config"
	"github.com/blumotif/folio/internal/kvstore"
	"github.com/blumotif/folio/internal/mirror"
	"github.com/blumotif/folio/internal/observability"
	"github.com/blumotif/folio/internal/server"
	"github.com/blumotif/folio/internal/site"
)

func newServeCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Serves the public JSON read API, the SSE update stream, and the
bearer-gated admin surface.

Examples:
  folio serve --addr :8080
  folio serve --backend sqlite --data-dir /var/lib/folio
  folio serve --config /etc/folio/folio.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}

	config.BindServeFlags(cmd, v)
	cmd.Flags().StringVar(&configFile, "config", "", "config file path")

	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(ctx, observability.Config{
		LogLevel:       cfg.Observability.LogLevel,
		LogFormat:      cfg.Observability.LogFormat,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		OTLPProtocol:   cfg.Observability.OTLPProtocol,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
	}, os.Stderr)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	kv := kvstore.New(backend, obs.Metrics, kvstore.SubscriptionConfig{})
	obs.Shutdown.Register("kvstore", func(context.Context) error {
		return kv.Close()
	})

	blobs := blobstore.New(kv, obs.Metrics)
	authSvc := auth.New(cfg.Admin.PasswordHash, cfg.Admin.SessionTTL)

	if cfg.SeedOnStart {
		n, err := site.Seed(ctx, kv)
		if err != nil {
			return fmt.Errorf("seed content: %w", err)
		}
		if n > 0 {
			obs.Logger.InfoContext(ctx, "seeded default content", "records", n)
		}
	}

	m := mirror.New(kv, authSvc)
	if err := m.Start(ctx); err != nil {
		return fmt.Errorf("start mirror: %w", err)
	}
	obs.Shutdown.Register("mirror", func(context.Context) error {
		m.Close()
		return nil
	})

	editor := admin.NewEditor(kv, blobs, authSvc, obs.Metrics)

	srv := server.New(server.Config{
		Addr:            cfg.HTTP.Addr,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, kv, blobs, m, editor, authSvc, obs.Metrics)
	srv.Start(ctx)
	obs.Shutdown.Register("http-server", srv.Shutdown)

	if cfg.Observability.MetricsAddr != "" {
		obs.ServeMetrics(ctx, cfg.Observability.MetricsAddr)
	}

	<-ctx.Done()
	obs.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return obs.Close(shutdownCtx)
}
