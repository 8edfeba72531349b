package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blumotif/folio/internal/blobstore"
	"github.com/blumotif/folio/internal/observability"
)

func newBlobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blob",
		Short: "Manage stored files",
	}
	cmd.AddCommand(newBlobPutCmd())
	cmd.AddCommand(newBlobGetCmd())
	cmd.AddCommand(newBlobRmCmd())
	return cmd
}

func newBlobPutCmd() *cobra.Command {
	v := viper.New()
	var configFile string
	var mimeType string

	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Store a file in the blob store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			mt := mimeType
			if mt == "" {
				mt = mime.TypeByExtension(filepath.Ext(args[0]))
			}
			if mt == "" {
				mt = "application/octet-stream"
			}

			kv, _, err := openClientStore(ctx, v, configFile)
			if err != nil {
				return err
			}
			defer func() { _ = kv.Close() }()

			blobs := blobstore.New(kv, observability.NewMetrics())
			name := filepath.Base(args[0])
			key, err := blobs.Put(ctx, name, blobstore.File{
				Name: name,
				MIME: mt,
				Data: data,
			})
			if err != nil {
				return fmt.Errorf("put: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	bindStoreFlags(cmd, v, &configFile)
	cmd.Flags().StringVar(&mimeType, "mime", "", "MIME type (default from extension)")
	return cmd
}

func newBlobGetCmd() *cobra.Command {
	v := viper.New()
	var configFile string
	var output string

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kv, _, err := openClientStore(ctx, v, configFile)
			if err != nil {
				return err
			}
			defer func() { _ = kv.Close() }()

			blobs := blobstore.New(kv, observability.NewMetrics())
			url, err := blobs.Resolve(ctx, args[0])
			if err != nil {
				return fmt.Errorf("resolve: %w", err)
			}
			if url == "" {
				return fmt.Errorf("no file stored under %q", args[0])
			}

			_, data, err := blobstore.DecodeDataURL(url)
			if err != nil {
				return fmt.Errorf("decode: %w", err)
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0644)
		},
	}

	bindStoreFlags(cmd, v, &configFile)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newBlobRmCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "rm <key>",
		Short: "Delete a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kv, _, err := openClientStore(ctx, v, configFile)
			if err != nil {
				return err
			}
			defer func() { _ = kv.Close() }()

			blobs := blobstore.New(kv, observability.NewMetrics())
			if err := blobs.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			return nil
		},
	}

	bindStoreFlags(cmd, v, &configFile)
	return cmd
}
