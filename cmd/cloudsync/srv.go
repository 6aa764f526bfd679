package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cloudsync/internal/blobstore"
	"cloudsync/internal/config"
	"cloudsync/internal/server"
	"cloudsync/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the cloudsync API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			blobRoot := cfg.BlobDir()
			logger.Info("opening blob directory", "path", blobRoot)
			bs, err := blobstore.NewLocalDir(blobRoot)
			if err != nil {
				return err
			}

			srv := server.New(addr, st, bs, logger, serverOptions(cfg))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
}

func serverOptions(cfg *config.Config) server.Options {
	return server.Options{
		Policy: server.StoragePolicy{
			StorageLimit:      cfg.Storage.LimitBytes,
			MaxFileSize:       cfg.Storage.MaxFileSizeBytes,
			EnforceQuota:      cfg.Storage.EnforceQuota,
			AllowedMediaTypes: cfg.Storage.AllowedMediaTypes,
		},
		CORS: server.CORSPolicy{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowCredentials: cfg.CORS.AllowCredentials,
		},
	}
}
