package server

import (
	"database/sql"
	"time"

	"papervault/internal/audit"
	"papervault/internal/config"
	"papervault/internal/logger"
	"papervault/internal/services"
	"papervault/internal/storage"
)

// App holds all application state and dependencies
type App struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *sql.DB
	AuditLogger *audit.Logger
	BlobStore   storage.BlobStore
	StartedAt   time.Time

	// Services layer for business logic
	Services *services.Services
}

// NewApp creates a new application instance wired to an open database and
// blob store.
func NewApp(cfg *config.Config, log *logger.Logger, db *sql.DB, blobs storage.BlobStore) *App {
	app := &App{
		Config:      cfg,
		Logger:      log,
		DB:          db,
		AuditLogger: audit.NewLogger(db, log),
		BlobStore:   blobs,
		StartedAt:   time.Now(),
	}

	// Initialize services layer
	app.Services = services.NewServices(app, log)

	return app
}

// services.AppState implementation

func (a *App) GetDB() *sql.DB                  { return a.DB }
func (a *App) GetConfig() *config.Config       { return a.Config }
func (a *App) GetLogger() *logger.Logger       { return a.Logger }
func (a *App) GetAuditLogger() *audit.Logger   { return a.AuditLogger }
func (a *App) GetBlobStore() storage.BlobStore { return a.BlobStore }
func (a *App) GetStartedAt() time.Time         { return a.StartedAt }
