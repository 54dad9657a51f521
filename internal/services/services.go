// Package services provides the business logic layer for papervault.
// Services orchestrate operations across the database, blob storage, and
// config packages. HTTP handlers should delegate to services for all
// business logic and keep auditing at the handler boundary.
package services

import (
	"database/sql"
	"time"

	"papervault/internal/audit"
	"papervault/internal/config"
	"papervault/internal/logger"
	"papervault/internal/storage"
)

// AppState provides access to shared application state.
// This interface decouples services from the concrete App type.
type AppState interface {
	GetDB() *sql.DB
	GetConfig() *config.Config
	GetLogger() *logger.Logger
	GetAuditLogger() *audit.Logger
	GetBlobStore() storage.BlobStore
	GetStartedAt() time.Time
}

// Services holds all service instances for the application.
// It acts as a service container that is initialized once at startup.
type Services struct {
	app    AppState
	logger *logger.Logger

	// Service instances
	Auth  *AuthService
	User  *UserService
	Paper *PaperService
	Grant *GrantService
}

// NewServices creates a new service container with all services initialized.
func NewServices(app AppState, log *logger.Logger) *Services {
	s := &Services{
		app:    app,
		logger: log,
	}

	s.Auth = NewAuthService(app, log)
	s.User = NewUserService(app, log)
	s.Paper = NewPaperService(app, log)
	s.Grant = NewGrantService(app, log)

	return s
}

// App returns the underlying app state for services that need direct access.
// This should be used sparingly - prefer using service methods.
func (s *Services) App() AppState {
	return s.app
}

// Logger returns the application logger.
func (s *Services) Logger() *logger.Logger {
	return s.logger
}

// Stop shuts down background goroutines owned by services.
func (s *Services) Stop() {
	if s.Auth != nil {
		s.Auth.Stop()
	}
}
