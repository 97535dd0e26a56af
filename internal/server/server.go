// Package server defines the Server struct that composes the gateway's
// shared dependencies.
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service
//   - the route manifest being served
//   - http.Server
//
// It provides the constructor and start/shutdown logic.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/deppfellow/schemaguard/internal/config"
	loggerPkg "github.com/deppfellow/schemaguard/internal/logger"
	"github.com/deppfellow/schemaguard/internal/manifest"
)

// newRelicFlushTimeout bounds how long shutdown waits for New Relic.
const newRelicFlushTimeout = 10 * time.Second

// Server is the application container, not the HTTP server itself.
type Server struct {
	// Config holds all environment/config values.
	Config *config.Config

	// Logger is the application's main structured logger.
	Logger *zerolog.Logger

	// LoggerService holds the New Relic application (nil app when disabled).
	LoggerService *loggerPkg.LoggerService

	// Manifest is the set of validated routes this gateway serves.
	Manifest *manifest.Manifest

	// httpServer is configured in SetupHTTPServer and started in Start.
	httpServer *http.Server
}

// New constructs a Server from already-initialized dependencies.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService, m *manifest.Manifest) *Server {
	return &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		Manifest:      m,
	}
}

// SetupHTTPServer configures the internal net/http server around handler
// (the Echo instance built by the router package).
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:    ":" + s.Config.Server.Port,
		Handler: handler,

		// Config stores seconds.
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start runs the HTTP server. It blocks until the server stops and returns
// nil after a graceful Shutdown.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	routes := 0
	if s.Manifest != nil {
		routes = len(s.Manifest.Routes)
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Int("routes", routes).
		Msg("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires, then flushes New Relic.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}

	s.LoggerService.Shutdown(newRelicFlushTimeout)

	return nil
}
