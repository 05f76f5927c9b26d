package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ridwanfathin/edge-transaction-service/internal/config"
	"github.com/ridwanfathin/edge-transaction-service/internal/middleware"
)

// shutdownTimeout bounds graceful shutdown
const shutdownTimeout = 10 * time.Second

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server for the transaction service
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      *config.Config
	log         zerolog.Logger
	storage     Pinger
	rateLimiter *middleware.DeviceRateLimiter
}

// NewServer creates and configures a new server instance. storage may be
// nil when the service runs on the in-memory backend.
func NewServer(cfg *config.Config, log zerolog.Logger, storage Pinger) *Server {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.CORSOrigins))
	// gzip sits outside the logger so logged bodies stay readable
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(middleware.RequestResponseLogger(log, middleware.LoggerConfig{
		LogBodies: cfg.LogLevel == "debug",
	}))

	server := &Server{
		router:  router,
		config:  cfg,
		log:     log,
		storage: storage,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}

	if cfg.IngestRatePerSec > 0 {
		server.rateLimiter = middleware.NewDeviceRateLimiter(cfg.IngestRatePerSec, cfg.IngestBurst)
	}

	server.setupRoutes()

	return server
}

// GetRouter returns the gin router instance
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// IngestLimiter returns the per-device limiter for ingestion routes, or a
// pass-through when rate limiting is disabled
func (s *Server) IngestLimiter() gin.HandlerFunc {
	if s.rateLimiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return s.rateLimiter.Middleware()
}

// setupRoutes configures the routes every deployment exposes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)

	if !s.config.SwaggerEnabled {
		return
	}

	// Swagger UI at http://localhost:8080/api-docs/index.html
	swaggerHandler := ginSwagger.WrapHandler(swaggerFiles.Handler)
	s.router.GET("/api-docs/*any", swaggerHandler)

	s.router.GET("/api-docs", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api-docs/index.html")
	})
}

func (s *Server) health(c *gin.Context) {
	backend := s.config.StorageBackend
	if s.storage != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.storage.Ping(ctx); err != nil {
			s.log.Warn().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unavailable",
				"storage": backend,
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"storage": backend,
	})
}

// Start begins listening for requests and handles graceful shutdown
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		s.log.Info().Int("port", s.config.Port).Msg("server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	s.log.Info().Msg("shutting down server")

	if err := s.Shutdown(); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.log.Info().Msg("server exited gracefully")
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
