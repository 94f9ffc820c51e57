// Package server exposes the book discovery API over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bookfinder/bookfinder/internal/auth"
	"github.com/bookfinder/bookfinder/internal/cache"
	"github.com/bookfinder/bookfinder/internal/library"
	"github.com/bookfinder/bookfinder/internal/logger"
	"github.com/bookfinder/bookfinder/internal/store"
)

// Server represents the HTTP server
type Server struct {
	server         *http.Server
	library        *library.Service
	users          *store.Repository
	prefs          cache.Store
	authService    *auth.Service
	authMiddleware *auth.Middleware
	logger         *logger.Logger
}

// New creates a new HTTP server wired to the auth, library and user
// data services. prefs backs device-level preferences such as the theme.
func New(addr string, lib *library.Service, users *store.Repository, prefs cache.Store, authService *auth.Service, log *logger.Logger) *Server {
	s := &Server{
		server: &http.Server{
			Addr: addr,
		},
		library:        lib,
		users:          users,
		prefs:          prefs,
		authService:    authService,
		authMiddleware: auth.NewMiddleware(authService),
		logger:         log,
	}

	handler := http.NewServeMux()

	// Health check (no auth required)
	handler.HandleFunc("/healthz", s.handleHealthCheck)

	// Authentication endpoints
	handler.HandleFunc("/auth/signup", s.handleSignup)
	handler.HandleFunc("/auth/login", s.handleLogin)
	handler.Handle("/auth/logout", s.authMiddleware.RequireAuth(http.HandlerFunc(s.handleLogout)))

	// Protected API endpoints
	handler.Handle("/api/users/me", s.authMiddleware.RequireAuth(http.HandlerFunc(s.handleCurrentUser)))
	handler.Handle("/api/books/search", s.authMiddleware.RequireAuth(http.HandlerFunc(s.handleSearch)))
	handler.Handle("/api/books/", s.authMiddleware.RequireAuth(http.HandlerFunc(s.handleBooksWithID)))
	handler.Handle("/api/favorites", s.authMiddleware.RequireAuth(http.HandlerFunc(s.handleFavorites)))
	handler.Handle("/api/reading-list", s.authMiddleware.RequireAuth(http.HandlerFunc(s.handleReadingList)))
	handler.Handle("/api/reviews/", s.authMiddleware.RequireAuth(http.HandlerFunc(s.handleReviewsWithID)))
	handler.Handle("/api/preferences/theme", s.authMiddleware.RequireAuth(http.HandlerFunc(s.handleTheme)))

	s.server.Handler = logger.HTTPMiddleware(handler)

	s.server.ReadTimeout = 10 * time.Second
	s.server.WriteTimeout = 30 * time.Second
	s.server.IdleTimeout = 120 * time.Second

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", map[string]interface{}{
		"addr": s.server.Addr,
	})

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}

// Handler returns the server's root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// handleHealthCheck handles health check requests
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}
