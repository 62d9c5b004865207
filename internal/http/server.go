// Package http provides the promptgate HTTP API.
//
// Routes:
//
//	GET  /health            liveness
//	GET  /metrics           Prometheus exposition
//	GET  /api/v1/status     budget and service summary
//	POST /api/v1/optimize   compress a prompt and verify retention
//	POST /api/v1/verify     verify retention of an already compressed prompt
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptgate/internal/compression"
	"github.com/fyrsmithlabs/promptgate/internal/facts"
	"github.com/fyrsmithlabs/promptgate/internal/logging"
	"github.com/fyrsmithlabs/promptgate/internal/retention"
	"github.com/fyrsmithlabs/promptgate/internal/scrub"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = "1M"

// Server provides HTTP endpoints for promptgate.
type Server struct {
	echo       *echo.Echo
	compressor *compression.Service
	verifier   *retention.Verifier
	scrubber   *scrub.Scrubber
	budget     compression.Budget
	version    string
	logger     *logging.Logger
	config     *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Dependencies are the services the server exposes.
type Dependencies struct {
	Compressor *compression.Service
	Verifier   *retention.Verifier
	Budget     compression.Budget

	// Scrubber, when set, redacts credentials from optimized prompts.
	Scrubber *scrub.Scrubber

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// MeterProvider records HTTP metrics. Defaults to the global provider.
	MeterProvider metric.MeterProvider

	Version string
}

// NewServer creates a new HTTP server.
func NewServer(deps Dependencies, logger *logging.Logger, cfg *Config) (*Server, error) {
	if deps.Compressor == nil {
		return nil, fmt.Errorf("compressor cannot be nil")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("verifier cannot be nil")
	}
	if deps.Budget == (compression.Budget{}) {
		return nil, fmt.Errorf("compression budget is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9090,
		}
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(maxBodyBytes))
	e.Use(NewHTTPMetrics(deps.MeterProvider, logger).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			ctx := logging.WithRequestID(c.Request().Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(c.Request().WithContext(ctx))
			err := next(c)
			duration := time.Since(start)

			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
			)

			return err
		}
	})

	s := &Server{
		echo:       e,
		compressor: deps.Compressor,
		verifier:   deps.Verifier,
		scrubber:   deps.Scrubber,
		budget:     deps.Budget,
		version:    deps.Version,
		logger:     logger,
		config:     cfg,
	}

	s.registerRoutes(gatherer)

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes(gatherer prometheus.Gatherer) {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
	v1.POST("/optimize", s.handleOptimize)
	v1.POST("/verify", s.handleVerify)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		Status:  "ok",
		Version: s.version,
		Services: map[string]string{
			"compression": "ok",
			"retention":   "ok",
		},
		Budget: BudgetRequest{
			TargetLength:     s.budget.TargetLength(),
			HardLimit:        s.budget.HardLimit(),
			WarningThreshold: s.budget.WarningThreshold(),
		},
		MinimumRetention: s.verifier.MinimumRetention(),
	})
}

// handleOptimize compresses the prompt and verifies retention. Retention
// failure is 422 with the optimized prompt and report in the body.
func (s *Server) handleOptimize(c echo.Context) error {
	var req OptimizeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid optimize request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt field is required")
	}

	set, err := facts.NewFactSet(req.Facts...)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	budget := s.budget
	if req.Budget != nil {
		budget, err = compression.NewBudget(req.Budget.TargetLength, req.Budget.HardLimit, req.Budget.WarningThreshold)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	ctx := c.Request().Context()
	result, err := s.compressor.Optimize(ctx, req.Prompt, budget, set.Facts())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	scrubbed := s.scrubber.Scrub(result.Text)
	resp := OptimizeResponse{
		Prompt:           scrubbed.Text,
		OriginalLength:   result.OriginalLength,
		FinalLength:      result.FinalLength,
		CompressionRatio: result.Ratio(),
		Strategies:       result.StrategyNames(),
		Redactions:       scrubbed.Findings,
	}

	report, err := s.verifier.Verify(ctx, req.Prompt, result.Text, set)
	resp.Retention = report
	if errors.Is(err, retention.ErrDataLoss) {
		return c.JSON(http.StatusUnprocessableEntity, resp)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// handleVerify checks a compressed prompt against its original.
func (s *Server) handleVerify(c echo.Context) error {
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid verify request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Compressed == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "compressed field is required")
	}

	set, err := facts.NewFactSet(req.Facts...)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	var report *retention.Report
	if req.Original == "" {
		report, err = s.verifier.VerifyFields(ctx, req.Compressed, set)
	} else {
		report, err = s.verifier.Verify(ctx, req.Original, req.Compressed, set)
	}
	if errors.Is(err, retention.ErrDataLoss) {
		return c.JSON(http.StatusUnprocessableEntity, report)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
