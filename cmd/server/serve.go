package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/piriven/piriven_backend/internal/config"
	"github.com/piriven/piriven_backend/internal/logger"
	"github.com/piriven/piriven_backend/internal/routes"
	"github.com/piriven/piriven_backend/internal/ws"
)

const shutdownTimeout = 10 * time.Second

// setupServer starts serving in the background. A listener failure is
// reported through fail so the caller stops waiting for a signal.
func setupServer(ctx context.Context, handler http.Handler, addr string, fail context.CancelCauseFunc) func(ctx context.Context) {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(ctx, "starting webserver...", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
				fail(fmt.Errorf("webserver: %w", err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

func serveCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Migrates, seeds and starts the HTTP server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, fail := context.WithCancelCause(sigCtx)
			defer fail(nil)

			if err := cfg.Validate(); err != nil {
				logger.Fatal(ctx, "invalid settings", zap.Error(err))
			}

			db, closeDB := getDatabase(ctx, cfg)
			defer closeDB()
			prepare(ctx, db, cfg)

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			hubs := ws.NewHubs()
			hubs.Run(ctx)

			stopWebserver := setupServer(ctx, routes.New(db, cfg, hubs, reg), cfg.Addr(), fail)

			// wait for interrupt or a listener failure
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			stopWebserver(shutdownCtx)
			if err := context.Cause(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
