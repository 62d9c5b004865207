package http_test

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptgate/internal/compression"
	httpserver "github.com/fyrsmithlabs/promptgate/internal/http"
	"github.com/fyrsmithlabs/promptgate/internal/logging"
	"github.com/fyrsmithlabs/promptgate/internal/retention"
)

// ExampleServer demonstrates how to create and start the HTTP server.
func ExampleServer() {
	compressor, err := compression.NewService()
	if err != nil {
		panic(err)
	}
	verifier, err := retention.NewVerifier()
	if err != nil {
		panic(err)
	}

	logger := logging.NewNop()

	// Configure the server
	cfg := &httpserver.Config{
		Host: "localhost",
		Port: 0,
	}

	server, err := httpserver.NewServer(httpserver.Dependencies{
		Compressor: compressor,
		Verifier:   verifier,
		Budget:     compression.MustBudget(2400, 4096, 3000),
	}, logger, cfg)
	if err != nil {
		panic(err)
	}

	// Start server in background
	go func() {
		if err := server.Start(); err != nil {
			logger.Debug(context.Background(), "server stopped", zap.Error(err))
		}
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error(ctx, "shutdown error", zap.Error(err))
	}

	fmt.Println("Server started and stopped successfully")
	// Output: Server started and stopped successfully
}
