// Package server provides HTTP server management and lifecycle handling for the dermacare API.
// It includes server setup, middleware configuration, route management, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/giygas/dermacare-api/config"
	"github.com/giygas/dermacare-api/interfaces"
	"github.com/giygas/dermacare-api/logging"
	"github.com/giygas/dermacare-api/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	server      *http.Server
	router      chi.Router
	handler     interfaces.HTTPHandler
	rateLimiter *RateLimiter
	config      *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, handler interfaces.HTTPHandler) *Server {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:        router,
			Addr:           cfg.Address + ":" + cfg.Port,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   writeTimeout(cfg.GeminiTimeout),
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: int(cfg.MaxHeaderSize),
		},
		router:      router,
		handler:     handler,
		rateLimiter: NewRateLimiter(),
		config:      cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// writeTimeout leaves room for the model call. Without a model timeout a request may block
// for as long as the provider does, so the server must not cut it short either.
func writeTimeout(geminiTimeout time.Duration) time.Duration {
	if geminiTimeout <= 0 {
		return 0
	}
	return geminiTimeout + 15*time.Second
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	logger := logging.DefaultLoggingService
	s.router.Use(middleware.RequestID)
	s.router.Use(RealIPMiddleware)
	if logger != nil && logger.Logger != nil {
		s.router.Use(logging.LoggingMiddleware(logger.Logger))
	}
	s.router.Use(metrics.Metrics)
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(s.rateLimiter.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handler.Home)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/upload-image", s.handler.UploadImage)
		r.Post("/chat", s.handler.Chat)
		r.Get("/medicines/{condition}", s.handler.GetMedicines)
	})

	s.router.Get("/health", s.handler.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server and blocks until it stops. A clean shutdown returns nil.
func (s *Server) Start() error {
	// Start profiling server if debugging in development mode
	if s.config.Env == config.EnvDevelopment && s.config.Debug {
		s.startProfilingServer()
	}

	logging.Info("Starting server", "address", s.config.Address, "port", s.config.Port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	s.rateLimiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// startProfilingServer starts the pprof profiling server in development mode
func (s *Server) startProfilingServer() {
	go func() {
		logging.Info("Profiling server started at http://localhost:6060/debug/pprof/")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			logging.Warn("Profiling server failed", "error", err)
		}
	}()
}
