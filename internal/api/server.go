package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"opssight/internal/config"
)

// Server represents the HTTP server with all configured routes and middleware.
type Server struct {
	app    *fiber.App
	config *config.ServerConfig
	logger *slog.Logger

	webhookHandler *WebhookHandler
	alertHandler   *AlertHandler
}

// ServerDeps contains all dependencies required to create a new Server.
type ServerDeps struct {
	Config         *config.ServerConfig
	Logger         *slog.Logger
	WebhookHandler *WebhookHandler
	AlertHandler   *AlertHandler
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(deps ServerDeps) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           deps.Config.ReadTimeout,
		WriteTimeout:          deps.Config.WriteTimeout,
		IdleTimeout:           deps.Config.IdleTimeout,
		ErrorHandler:          customErrorHandler,
	})

	s := &Server{
		app:            app,
		config:         deps.Config,
		logger:         deps.Logger,
		webhookHandler: deps.WebhookHandler,
		alertHandler:   deps.AlertHandler,
	}

	s.registerMiddleware()
	s.registerRoutes()

	return s
}

// registerMiddleware sets up all middleware for the server.
func (s *Server) registerMiddleware() {
	// Recovery middleware to handle panics
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware for tracing
	s.app.Use(requestid.New())

	// Logger middleware for request logging
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} | ${path} | ${error}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
}

// registerRoutes sets up all API routes.
func (s *Server) registerRoutes() {
	// Health check endpoint (outside versioned API)
	s.app.Get("/healthz", s.healthCheck)

	// Prometheus metrics endpoint
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Webhook ingestion surface. The paths match what each sender
	// expects to be configured with.
	s.app.Post("/webhook", s.webhookHandler.Generic)
	s.app.Post("/webhook/:webhook_id", s.webhookHandler.Generic)
	s.app.Post("/slack/events", s.webhookHandler.SlackEvents)
	s.app.Post("/slack/interactive", s.webhookHandler.SlackInteractive)
	s.app.Post("/github/webhook", s.webhookHandler.GitHub)
	s.app.Post("/prometheus/webhook", s.webhookHandler.Prometheus)
	s.app.Post("/grafana/webhook", s.webhookHandler.Grafana)
	s.app.Post("/pagerduty/webhook", s.webhookHandler.PagerDuty)

	// API v1 routes
	v1 := s.app.Group("/v1")

	// Alert lifecycle
	v1.Get("/alerts", s.alertHandler.List)
	v1.Get("/alerts/:id", s.alertHandler.GetByID)
	v1.Post("/alerts/:id/acknowledge", s.alertHandler.Acknowledge)
	v1.Post("/alerts/:id/resolve", s.alertHandler.Resolve)
	v1.Post("/alerts/:id/suppress", s.alertHandler.Suppress)
	v1.Get("/alerts/:id/events", s.alertHandler.Events)
}

// healthCheck returns the health status of the service.
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return Success(c, map[string]string{
		"status": "healthy",
	})
}

// App returns the underlying fiber application. Exposed for tests that
// exercise routes with app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.logger.Info("starting HTTP server", "address", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler handles errors returned from handlers.
func customErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return Error(c, e.Code, ErrCodeInternalError, e.Message)
	}
	return InternalError(c, fmt.Sprintf("unexpected error: %v", err))
}
