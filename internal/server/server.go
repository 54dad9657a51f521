package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"papervault/internal/auth"
	"papervault/internal/constants"
	"papervault/internal/logger"
	"papervault/internal/version"
)

// Server wraps the HTTP server with graceful shutdown
type Server struct {
	httpServer *http.Server
	app        *App
	logger     *logger.Logger
}

// NewServer creates a new HTTP server
func NewServer(app *App, addr string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		app:    app,
		logger: app.Logger,
	}

	// Register routes
	s.registerRoutes(mux)

	// Build middleware chain: RequestID → SecurityHeaders → Authenticate → handler.
	// Authenticate never rejects; it attaches the resolved identity or the
	// classified failure for handlers to act on.
	authMW := auth.NewMiddleware(func() *auth.Store {
		if app.Services.Auth != nil {
			return app.Services.Auth.GetStore()
		}
		return nil
	}, app.Logger)
	handler := Chain(mux, RequestID, SecurityHeaders, authMW.Authenticate)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  0, // No timeout for streaming uploads
		WriteTimeout: 0, // No timeout for streaming downloads
		IdleTimeout:  constants.HTTPIdleTimeout,
	}

	return s
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Auth routes
	mux.HandleFunc("/api/auth/login", s.handleAuthLogin)
	mux.HandleFunc("/api/auth/logout", s.handleAuthLogout)
	mux.HandleFunc("/api/auth/me", s.handleAuthMe)
	mux.HandleFunc("/api/auth/change-password", s.handleAuthChangePassword)

	// Paper routes
	mux.HandleFunc("/api/papers", s.handlePapers)
	mux.HandleFunc("/api/papers/", s.handlePaperRoutes)

	// Admin routes
	mux.HandleFunc("/api/admin/users", s.handleAdminUsers)
	mux.HandleFunc("/api/admin/users/", s.handleAdminUserRoutes)
	mux.HandleFunc("/api/admin/paper-assignments", s.handleAdminCreateAssignment)
	mux.HandleFunc("/api/admin/paper-assignments/", s.handleAdminDeleteAssignment)
	mux.HandleFunc("/api/admin/access-logs", s.handleAdminAccessLogs)

	// Liveness
	mux.HandleFunc("/api/health", s.handleHealth)
}

// GET /api/health — liveness probe, no auth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	WriteSuccess(w, map[string]interface{}{
		"status":  "ok",
		"version": version.Version,
		"uptime":  time.Since(s.app.StartedAt).Round(time.Second).String(),
	})
}

// Start runs the server and blocks until shutdown signal
func (s *Server) Start() error {
	// Channel for shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, shutdownSignals...)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case err := <-errChan:
		return err
	case sig := <-stop:
		s.logger.Info("Received signal %v, shutting down...", sig)
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.ShutdownTimeoutSecs)*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Shutdown error: %v", err)
	}

	// Stop session cleanup goroutine
	s.app.Services.Stop()

	// Drain and stop the audit writer
	if s.app.AuditLogger != nil {
		s.app.AuditLogger.Stop()
	}

	if s.app.DB != nil {
		s.app.DB.Close()
	}

	s.logger.Info("Server stopped")
	return nil
}

// Handler returns the HTTP handler for testing purposes
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
