// Package http provides the interview HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/logging"
)

// API is the set of interview operations served over HTTP.
type API interface {
	Initialize(ctx context.Context, userID, moduleCode string) (*interview.InitResult, error)
	SubmitAnswer(ctx context.Context, req interview.AnswerRequest) (*interview.AnswerResult, error)
	EnterCoding(ctx context.Context, sessionID string) (*interview.AnswerResult, error)
	Feedback(ctx context.Context, sessionID string) (*interview.Feedback, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]interview.Summary, error)
	SessionDetail(ctx context.Context, userID, sessionID string) (*interview.Detail, error)
	Patterns(ctx context.Context, userID string) (*interview.History, error)
	Modules(ctx context.Context) ([]interview.Module, error)

	AnalyzeApproach(ctx context.Context, req interview.ApproachRequest) (*interview.ApproachAnalysis, error)
	OptimizeCode(ctx context.Context, req interview.OptimizeRequest) (*interview.OptimizeResult, error)
	RetrieveContext(ctx context.Context, req interview.ContextRequest) (*interview.ContextResult, error)
	Interactions(ctx context.Context, userID string, limit int) ([]interview.Interaction, error)
}

var _ API = (*interview.Service)(nil)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// Checks are run by GET /health, keyed by dependency name.
	Checks map[string]HealthCheck
	// Meter records request metrics. Nil uses the global provider.
	Meter metric.Meter
}

// Server provides HTTP endpoints for interviewd.
type Server struct {
	echo   *echo.Echo
	api    API
	logger *logging.Logger
	config *Config
}

// NewServer creates a new HTTP server.
func NewServer(api API, logger *logging.Logger, cfg *Config) (*Server, error) {
	if api == nil {
		return nil, fmt.Errorf("api cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}
	logger = logger.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		api:    api,
		logger: logger,
		config: cfg,
	}
	e.HTTPErrorHandler = s.handleError

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewHTTPMetrics(cfg.Meter, logger).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				// Resolve the status before logging it.
				c.Error(err)
			}

			logger.Info(ctx, "http request",
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	})

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/interviews", s.handleInitialize)
	v1.POST("/interviews/answer", s.handleAnswer)
	v1.POST("/interviews/:session_id/coding", s.handleEnterCoding)
	v1.GET("/interviews/:session_id/feedback", s.handleFeedback)
	v1.GET("/modules", s.handleModules)
	v1.GET("/users/:user_id/sessions", s.handleListSessions)
	v1.GET("/users/:user_id/sessions/:session_id", s.handleSessionDetail)
	v1.GET("/users/:user_id/patterns", s.handlePatterns)
	v1.GET("/users/:user_id/interactions", s.handleInteractions)

	v1.POST("/approach/analyze", s.handleAnalyzeApproach)
	v1.POST("/code/optimize", s.handleOptimizeCode)
	v1.POST("/context/retrieve", s.handleRetrieveContext)
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
