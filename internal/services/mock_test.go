package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"papervault/internal/audit"
	"papervault/internal/auth"
	"papervault/internal/config"
	"papervault/internal/database"
	"papervault/internal/logger"
	"papervault/internal/storage"
)

// =============================================================================
// Shared mock AppState for all service tests
// =============================================================================

// mockAppState implements AppState for testing across all service test files.
type mockAppState struct {
	db          *sql.DB
	cfg         *config.Config
	log         *logger.Logger
	auditLogger *audit.Logger
	blobs       storage.BlobStore
	startedAt   time.Time
}

func (m *mockAppState) GetDB() *sql.DB                  { return m.db }
func (m *mockAppState) GetConfig() *config.Config       { return m.cfg }
func (m *mockAppState) GetLogger() *logger.Logger       { return m.log }
func (m *mockAppState) GetAuditLogger() *audit.Logger   { return m.auditLogger }
func (m *mockAppState) GetBlobStore() storage.BlobStore { return m.blobs }
func (m *mockAppState) GetStartedAt() time.Time         { return m.startedAt }

// newMockAppState builds an app state backed by an in-memory database.
func newMockAppState(t *testing.T) *mockAppState {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// Pooled connections each get their own :memory: database; force one.
	db.SetMaxOpenConns(1)
	if err := database.ApplySchema(db); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.ApplyDefaults()

	return &mockAppState{
		db:        db,
		cfg:       cfg,
		log:       logger.NewLoggerWithOptions(logger.LoggerOptions{Level: "error"}),
		blobs:     newMockBlobStore(),
		startedAt: time.Now(),
	}
}

// =============================================================================
// In-memory blob store
// =============================================================================

// mockBlobStore keeps blobs in a map and can be told to fail operations.
type mockBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{objects: make(map[string][]byte)}
}

func (m *mockBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.failPut {
		return fmt.Errorf("put failed")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *mockBlobStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockBlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *mockBlobStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func (m *mockBlobStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// =============================================================================
// User fixtures
// =============================================================================

// createTestUser inserts a user with the given role and password "hunter2hunter2".
func createTestUser(t *testing.T, app *mockAppState, email, role string) *auth.Identity {
	t.Helper()

	store := auth.NewStore(app.db)
	hash, err := auth.HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user, err := store.CreateUser(email, "Test User", role, hash, false, nil)
	if err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return &auth.Identity{User: user}
}
