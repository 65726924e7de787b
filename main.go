// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Galaxy Console is the web console of the Galaxy cluster scheduler.
*/
package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/core/audit"
	"codeberg.org/galaxy/console/core/confstore"
	"codeberg.org/galaxy/console/core/requests"
	"codeberg.org/galaxy/console/server/assets"
	"codeberg.org/galaxy/console/server/middleware/limiter"
	"codeberg.org/galaxy/console/server/router"
)

const (
	// Values for http.Server timeouts.
	// ref: gosec: G112
	readHeaderTimeout time.Duration = 15 * time.Second
	readTimeout       time.Duration = 15 * time.Second
	writeTimeout      time.Duration = 30 * time.Second
	idleTimeout       time.Duration = 30 * time.Second

	serverShutdownDeadline time.Duration = 5 * time.Second
)

// embeddedContent holds the stylesheet, images and robots.txt.
//
//go:embed assets/css assets/img assets/robots.txt
var embeddedContent embed.FS

//nolint:gochecknoinits
func init() {
	assets.FS = embeddedContent
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Console failed")
	}
}

// run starts the console and blocks until it is shut down.
//
//nolint:funlen
func run() error {
	audit.SetDefaultLogger()

	if err := config.Global.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := requests.Setup(); err != nil {
		return fmt.Errorf("failed to set up the master response cache: %w", err)
	}

	store, err := confstore.Open(config.Global.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open conf store: %w", err)
	}

	confstore.Default = store

	defer func() {
		if err := store.Close(); err != nil {
			log.Err(err).Msg("Failed to close conf store")
		}
	}()

	router := router.NewRouter(router.DefineRoutes())
	router.RegisterMiddleware()

	listener, err := listen()
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	served := make(chan error, 1)

	go func() { served <- server.Serve(listener) }()

	select {
	case err := <-served:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down, waiting for in-flight requests")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownDeadline)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	limiter.Fini()

	log.Info().Msg("Console stopped")

	return nil
}
