// Package http is the thin HTTP adapter that translates requests into application service calls.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/application/service"
	"github.com/garyjia/translation-quotes/internal/domain/pricing"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MaxUploadBytes caps multipart bodies on the upload route
	MaxUploadBytes int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   90 * time.Second,
		MaxUploadBytes: 25 << 20,
	}
}

// StatusWaiter blocks until a quote leaves processing
type StatusWaiter interface {
	Wait(ctx context.Context, quoteID string) (*service.QuoteStatus, error)
}

// ReviewExporter writes the open review queue as a workbook
type ReviewExporter interface {
	Export(ctx context.Context, w io.Writer, now time.Time) (int, error)
}

// MetricsProvider instruments the router and serves the scrape endpoint
type MetricsProvider interface {
	GinMiddleware() gin.HandlerFunc
	Handler() http.Handler
}

// ReadinessFunc reports whether the service can take traffic, with per-component detail
type ReadinessFunc func(ctx context.Context) (bool, interface{})

// Dependencies are the application services behind the routes.
// Webhooks, Metrics and Readiness are optional.
type Dependencies struct {
	Quotes        service.QuoteService
	Processing    service.ProcessingService
	Thresholds    service.ThresholdService
	Reviews       service.ReviewService
	Cancellations service.CancellationService
	Poller        StatusWaiter
	ReviewExport  ReviewExporter
	Calculator    *pricing.Calculator
	Webhooks      port.PaymentWebhookVerifier
	Metrics       MetricsProvider
	Readiness     ReadinessFunc
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	deps       Dependencies
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, deps Dependencies, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultServerConfig().MaxUploadBytes
	}

	server := &Server{
		config: config,
		router: gin.New(),
		deps:   deps,
		logger: logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	if s.deps.Metrics != nil {
		s.router.Use(s.deps.Metrics.GinMiddleware())
	}
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.deps, s.config.MaxUploadBytes, s.logger)

	s.router.GET("/health", h.HealthCheck)
	s.router.GET("/ready", h.ReadinessCheck)
	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	api := s.router.Group("/api")
	{
		api.POST("/pricing/calculate", h.CalculatePrice)

		api.POST("/quotes", h.CreateQuote)
		api.GET("/quotes/:id", h.GetQuote)
		api.POST("/quotes/:id/files", h.UploadFile)
		api.PUT("/quotes/:id/details", h.SubmitDetails)
		api.GET("/quotes/:id/status", h.GetStatus)
		api.GET("/quotes/:id/wait", h.WaitForStatus)
		api.POST("/quotes/:id/accept", h.AcceptQuote)
		api.POST("/quotes/process", h.ProcessQuote)

		api.POST("/webhooks/stripe", h.StripeWebhook)
	}

	admin := api.Group("/admin")
	{
		admin.POST("/hitl/check", h.CheckThresholds)
		admin.GET("/hitl-reviews", h.ListReviews)
		admin.GET("/hitl-reviews/export", h.ExportReviews)
		admin.GET("/hitl-reviews/:id", h.GetReview)
		admin.POST("/hitl-reviews/:id/claim", h.ClaimReview)
		admin.POST("/hitl-reviews/:id/approve", h.ApproveReview)
		admin.POST("/hitl-reviews/:id/reject", h.RejectReview)
		admin.POST("/hitl-reviews/:id/request-better-scan", h.RequestBetterScan)
		admin.GET("/hitl-thresholds", h.ListThresholds)
		admin.PUT("/hitl-thresholds/:key", h.SetThreshold)

		admin.GET("/quotes/:id/files", h.ListFiles)
		admin.GET("/quotes/:id/analyses", h.ListAnalyses)
		admin.GET("/quotes/:id/history", h.ListHistory)
		admin.POST("/quotes/:id/recalculate", h.RecalculateTotals)
		admin.PATCH("/analyses/:id", h.OverrideAnalysis)

		admin.POST("/orders/cancel", h.CancelOrder)
		admin.GET("/orders/:id/cancellations", h.ListCancellations)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
