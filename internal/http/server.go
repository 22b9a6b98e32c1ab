// Package http provides the HTTP API for docqd.
package http

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqd/internal/answer"
	"github.com/fyrsmithlabs/docqd/internal/config"
	"github.com/fyrsmithlabs/docqd/internal/events"
	"github.com/fyrsmithlabs/docqd/internal/ingest"
)

// Server provides HTTP endpoints for document ingestion and querying.
type Server struct {
	echo    *echo.Echo
	ingest  *ingest.Service
	answers *answer.Service
	events  events.Publisher
	logger  *zap.Logger
	config  *config.ServerConfig
	metrics *Metrics
}

// NewServer creates the API server. A nil publisher disables event
// notifications and a nil cfg falls back to localhost:8080.
func NewServer(ingestService *ingest.Service, answerService *answer.Service, publisher events.Publisher, logger *zap.Logger, cfg *config.ServerConfig) (*Server, error) {
	switch {
	case ingestService == nil:
		return nil, fmt.Errorf("ingest service cannot be nil")
	case answerService == nil:
		return nil, fmt.Errorf("answer service cannot be nil")
	case logger == nil:
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if cfg == nil {
		cfg = &config.ServerConfig{Host: "localhost", Port: 8080}
	}

	s := &Server{
		ingest:  ingestService,
		answers: answerService,
		events:  publisher,
		logger:  logger,
		config:  cfg,
		metrics: NewMetrics(),
	}
	s.echo = s.newRouter()

	return s, nil
}

// newRouter assembles the echo instance with middleware and routes.
func (s *Server) newRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.metrics.Middleware())
	e.Use(requestLogger(s.logger))

	// Health check and Prometheus scrape endpoint
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")
	v1.POST("/documents", s.handleUpload)
	v1.GET("/documents", s.handleListDocuments)
	v1.GET("/documents/:id", s.handleGetDocument)
	v1.DELETE("/documents/:id", s.handleDeleteDocument)
	v1.POST("/query", s.handleQuery)

	return e
}

// requestLogger emits one access log line per request, tagged with the
// request ID assigned by the RequestID middleware.
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	}
}

// Start begins serving on the configured address and blocks until the
// server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown stops the server, waiting for in-flight requests to finish
// or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
