package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deppfellow/schemaguard/internal/config"
	"github.com/deppfellow/schemaguard/internal/handler"
	"github.com/deppfellow/schemaguard/internal/logger"
	"github.com/deppfellow/schemaguard/internal/manifest"
	"github.com/deppfellow/schemaguard/internal/router"
	"github.com/deppfellow/schemaguard/internal/server"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway for the routes in a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), manifestPath)
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "route manifest (overrides SCHEMAGUARD_GATEWAY__MANIFEST_PATH)")
	return cmd
}

func runServe(ctx context.Context, manifestPath string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if manifestPath != "" {
		cfg.Gateway.ManifestPath = manifestPath
	}

	loggerService, err := logger.NewLoggerService(cfg.Observability)
	if err != nil {
		return err
	}
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	m, err := manifest.Load(cfg.Gateway.ManifestPath)
	if err != nil {
		log.Error().Err(err).Str("manifest", cfg.Gateway.ManifestPath).Msg("failed to load manifest")
		loggerService.Shutdown(time.Second)
		return err
	}

	srv := server.New(cfg, &log, loggerService, m)

	r, err := router.NewRouter(srv, handler.NewHandlers(srv))
	if err != nil {
		log.Error().Err(err).Msg("failed to build router")
		loggerService.Shutdown(time.Second)
		return err
	}
	srv.SetupHTTPServer(r)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}

	log.Info().Msg("server exited properly")
	return nil
}
