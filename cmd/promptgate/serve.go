package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/promptgate/internal/http"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default: server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", -1, "listen port (default: server.port)")
}

var (
	serveHost string
	servePort int
)

// serveCmd runs the optimize/verify HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the optimize and verify HTTP API",
	Long: `Start the promptgate HTTP API.

Endpoints:
  GET  /health
  GET  /metrics
  GET  /api/v1/status
  POST /api/v1/optimize
  POST /api/v1/verify

The server shuts down gracefully on SIGINT or SIGTERM within
server.shutdown_timeout.

Examples:
  # Serve on the configured address
  promptgate serve

  # Override the port
  promptgate serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	srvCfg := &httpserver.Config{Host: rt.cfg.Server.Host, Port: rt.cfg.Server.Port}
	if serveHost != "" {
		srvCfg.Host = serveHost
	}
	if servePort >= 0 {
		srvCfg.Port = servePort
	}

	srv, err := httpserver.NewServer(httpserver.Dependencies{
		Compressor:    rt.services.Compression(),
		Verifier:      rt.services.Retention(),
		Budget:        rt.budget,
		Scrubber:      rt.scrubber,
		Gatherer:      rt.metrics,
		MeterProvider: rt.telemetry.MeterProvider(),
		Version:       version,
	}, rt.logger.Named("http"), srvCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		rt.logger.Error(shutdownCtx, "graceful shutdown failed", zap.Error(err))
		return err
	}
	rt.logger.Info(shutdownCtx, "server stopped")
	return nil
}
