package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/interviewd/internal/http"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the interview HTTP API and block until SIGINT or SIGTERM.

Examples:
  # Start with the default config file
  interviewd serve

  # Override the port through the environment
  INTERVIEWD_SERVER_PORT=9090 interviewd serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runServe(ctx)
		},
	}
}

// runServe starts the server and blocks until ctx is cancelled.
func runServe(ctx context.Context) error {
	rt, err := newRuntime(ctx, configPath)
	if err != nil {
		return err
	}

	svc, closeSvc, err := rt.service(ctx)
	if err != nil {
		_ = rt.Close(context.Background())
		return err
	}

	srv, err := httpserver.NewServer(svc, rt.logger, &httpserver.Config{
		Host: rt.cfg.Server.Host,
		Port: rt.cfg.Server.Port,
		Checks: map[string]httpserver.HealthCheck{
			"store": rt.store.Ping,
			"telemetry": func(context.Context) error {
				if h := rt.tel.Health(); h.Degraded {
					return fmt.Errorf("degraded: %s", h.Error)
				}
				return nil
			},
		},
		Meter: rt.tel.Meter("github.com/fyrsmithlabs/interviewd/internal/http"),
	})
	if err != nil {
		closeSvc()
		_ = rt.Close(context.Background())
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info(ctx, "starting interviewd",
			zap.String("host", rt.cfg.Server.Host),
			zap.Int("port", rt.cfg.Server.Port),
			zap.String("version", version))
		errCh <- srv.Start()
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		rt.logger.Info(context.Background(), "shutting down",
			zap.Duration("timeout", rt.cfg.Server.ShutdownTimeout.Duration()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		rt.logger.Error(shutdownCtx, "server shutdown failed", zap.Error(err))
	}
	closeSvc()
	if err := rt.Close(shutdownCtx); err != nil {
		rt.logger.Warn(shutdownCtx, "cleanup failed", zap.Error(err))
	}

	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}
	return nil
}
