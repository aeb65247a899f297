package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/erazemk/zaloga/internal/api"
	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/store"
	"github.com/erazemk/zaloga/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI and the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd)
		},
	}
	c.Flags().StringP("addr", "a", ":8080", "listen address")
	bind(a.v, c.Flags().Lookup, map[string]string{"server.addr": "addr"})
	return c
}

func (a *app) serve(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := a.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	// First run on a fresh database.
	if _, err := store.GetPassphraseHash(ctx, b.db); errors.Is(err, store.ErrSettingNotFound) {
		passphrase, err := setupPassphrase(ctx, b.db)
		if err != nil {
			return err
		}
		printPassphrase(cmd.OutOrStdout(), passphrase)
	} else if err != nil {
		return err
	}

	jwtSecret, err := store.GetJWTSecret(ctx, b.db)
	if err != nil {
		return fmt.Errorf("getting jwt secret: %w", err)
	}

	// The holder outlives the signal so in-flight writes can finish while
	// the server drains.
	holder, err := inventory.NewStateHolder(context.WithoutCancel(ctx),
		inventory.NewRepository(b.store),
		inventory.WithLogger(slog.Default()),
		inventory.WithMetrics(metrics.NewStoreMetrics(prometheus.DefaultRegisterer)),
	)
	if err != nil {
		return err
	}
	defer holder.Close()

	shutdown := make(chan struct{})

	apiRouter := api.NewRouter(api.Options{
		DB:          b.db,
		Inventory:   holder,
		LiveErr:     holder.Err,
		JWTSecret:   jwtSecret,
		TokenExpiry: a.cfg.Auth.TokenExpiry,
		WriteRate:   a.cfg.API.WriteRate,
		WriteBurst:  a.cfg.API.WriteBurst,
		Shutdown:    shutdown,
		Gatherer:    prometheus.DefaultGatherer,
	})
	webRouter, err := web.NewRouter(web.Options{
		DB:          b.db,
		Inventory:   holder,
		JWTSecret:   jwtSecret,
		TokenExpiry: a.cfg.Auth.TokenExpiry,
		Shutdown:    shutdown,
	})
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	// API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("GET /healthz", apiRouter)
	mux.Handle("GET /metrics", apiRouter)
	mux.Handle("/", webRouter)

	server := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.RequestID(api.LoggingMiddleware(slog.Default())(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
		IdleTimeout:       a.cfg.Server.IdleTimeout,
	}
	server.RegisterOnShutdown(func() { close(shutdown) })

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", a.cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}

	if err := holder.Close(); err != nil {
		slog.Error("live item query ended with an error", "error", err)
	}
	slog.Info("server stopped, closing database")
	return nil
}
