package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"papervault/internal/auth"
	"papervault/internal/config"
	"papervault/internal/database"
	"papervault/internal/logger"
)

// newTestServer builds a full server over an in-memory database and an
// in-memory blob store.
func newTestServer(t *testing.T) (*Server, *App) {
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

	cfg := &config.Config{DevMode: true}
	cfg.ApplyDefaults()
	log := logger.NewLoggerWithOptions(logger.LoggerOptions{Level: "error"})

	app := NewApp(cfg, log, db, newMemBlobStore())
	t.Cleanup(func() {
		app.Services.Stop()
		db.Close()
	})

	return NewServer(app, ":0"), app
}

// memBlobStore keeps blobs in a map.
type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: make(map[string][]byte)}
}

func (m *memBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memBlobStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// testPassword is shared by every fixture user.
const testPassword = "hunter2hunter2"

// createServerUser inserts a user directly into the store.
func createServerUser(t *testing.T, app *App, email, role string) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user, err := app.Services.Auth.GetStore().CreateUser(email, "Test User", role, hash, false, nil)
	if err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user
}

// loginAs authenticates through the API and returns the session token.
func loginAs(t *testing.T, srv *Server, email, password string) string {
	t.Helper()

	rec := doJSON(srv, http.MethodPost, "/api/auth/login", "",
		map[string]interface{}{"email": email, "password": password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed: status %d, body %s", email, rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("login as %s returned no token", email)
	}
	return token
}

// doJSON performs a request with an optional JSON body and bearer token.
func doJSON(srv *Server, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// decodeBody parses a JSON response body.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

// errorCode extracts the machine-readable code from an error response.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	code, _ := decodeBody(t, rec)["code"].(string)
	return code
}

// uploadPaper performs a multipart upload and returns the paper ID.
func uploadPaper(t *testing.T, srv *Server, token, title, confidentiality string, content []byte) int64 {
	t.Helper()

	rec := doUpload(srv, token, title, confidentiality, content)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload failed: status %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	paper, _ := body["paper"].(map[string]interface{})
	id, _ := paper["id"].(float64)
	if id < 1 {
		t.Fatalf("upload returned no paper id: %s", rec.Body.String())
	}
	return int64(id)
}

// doUpload builds the multipart request without asserting on the outcome.
func doUpload(srv *Server, token, title, confidentiality string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("title", title)
	mw.WriteField("abstract", "An abstract.")
	mw.WriteField("authors", "A. Author")
	if confidentiality != "" {
		mw.WriteField("confidentiality", confidentiality)
	}
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="paper.pdf"`)
	hdr.Set("Content-Type", "application/pdf")
	part, _ := mw.CreatePart(hdr)
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/papers", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}
