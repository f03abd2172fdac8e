package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sonpero/Notes2Notion/internal/core/ports/driven"
	"github.com/sonpero/Notes2Notion/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	callbackService driving.CallbackService
	connectService  driving.ConnectService
	signer          driven.ScopeSigner

	cookieSecure bool
	interstitial bool

	// Infrastructure health checks, keyed by component name
	components map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// CookieSecure marks the scope cookie Secure (HTTPS deployments).
	CookieSecure bool

	// Interstitial answers the provider redirect with a "Connecting Notion..."
	// page that completes the callback on /notion/callback/complete.
	Interstitial bool

	// AllowedOrigins enables CORS on /api routes. Empty disables CORS.
	AllowedOrigins []string

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    3000,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	callbackService driving.CallbackService,
	connectService driving.ConnectService,
	signer driven.ScopeSigner,
	components map[string]Pinger, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger,
		callbackService: callbackService,
		connectService:  connectService,
		signer:          signer,
		cookieSecure:    cfg.CookieSecure,
		interstitial:    cfg.Interstitial,
		components:      components,
	}

	s.setupRoutes(cfg.AllowedOrigins)

	handler := NewRecoveryMiddleware(logger).Handler(
		NewLoggingMiddleware(logger).Handler(s.router))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: a callback waits on the exchange for as long as
		// the browser keeps the request open.
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(allowedOrigins []string) {
	cors := NewCORSMiddleware(allowedOrigins)

	// Health endpoints
	s.router.Handle("GET /api/health", cors.Handler(http.HandlerFunc(s.handleHealth)))
	s.router.Handle("OPTIONS /api/health", cors.Handler(http.HandlerFunc(s.handleHealth)))
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Notion OAuth flow. Both are top-level browser navigations.
	s.router.HandleFunc("GET /notion/connect", s.handleConnect)
	if s.interstitial {
		s.router.HandleFunc("GET /notion/callback", s.handleCallbackInterstitial)
	} else {
		s.router.HandleFunc("GET /notion/callback", s.handleCallback)
	}
	s.router.HandleFunc("GET "+callbackCompletePath, s.handleCallback)
}

// Handler returns the server's root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
