package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/classwatch/classwatch/internal/config"
	"github.com/classwatch/classwatch/internal/storage"
	"github.com/classwatch/classwatch/internal/vision"
	"github.com/classwatch/classwatch/internal/web/handlers"
	"github.com/classwatch/classwatch/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config         *config.Config
	store          storage.Store
	detector       vision.Detector
	pipeline       handlers.Pipeline
	router         *chi.Mux
	httpServer     *http.Server
	sessionManager *middleware.SessionManager
}

// NewServer creates a new web server
func NewServer(
	cfg *config.Config,
	port int,
	host string,
	sessionSecret string,
	sessionRepo middleware.SessionRepository,
	store storage.Store,
	detector vision.Detector,
	pipeline handlers.Pipeline,
) *Server {
	r := chi.NewRouter()

	// Create session manager with optional persistence
	sessionManager := middleware.NewSessionManager(sessionSecret, sessionRepo)

	s := &Server{
		config:         cfg,
		store:          store,
		detector:       detector,
		pipeline:       pipeline,
		router:         r,
		sessionManager: sessionManager,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Set up routes
	s.setupRoutes(sessionManager)

	// Create HTTP server. WriteTimeout stays at zero because the MJPEG
	// feed writes for as long as the viewer watches.
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", host, port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	// Stop the session cleanup goroutine
	if s.sessionManager != nil {
		s.sessionManager.Stop()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
