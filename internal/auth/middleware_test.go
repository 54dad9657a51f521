package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"papervault/internal/constants"
	"papervault/internal/logger"
)

// setupAuthed creates a store with one active user and a live session.
// Returns the store and the plaintext token.
func setupAuthed(t *testing.T) (*Store, string) {
	t.Helper()
	store := setupTestStore(t)

	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	user, err := store.CreateUser("mw@example.com", "MW", constants.RoleResearcher, hash, false, nil)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	token, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken failed: %v", err)
	}
	if _, err := store.CreateSession(HashToken(token), ExtractTokenPrefix(token),
		user.ID, "127.0.0.1", "test"); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	return store, token
}

// resolveRequest runs a request through the middleware and captures the resolution.
func resolveRequest(t *testing.T, store *Store, setup func(*http.Request)) *Resolution {
	t.Helper()
	mw := NewMiddleware(func() *Store { return store }, logger.NewLogger("ERROR"))

	var captured *Resolution
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetResolution(r)
	}))

	req := httptest.NewRequest("GET", "/api/papers", nil)
	if setup != nil {
		setup(req)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if captured == nil {
		t.Fatal("expected resolution on context")
	}
	return captured
}

func TestAuthenticateNoToken(t *testing.T) {
	store, _ := setupAuthed(t)

	resolution := resolveRequest(t, store, nil)
	if resolution.Identity != nil {
		t.Error("expected no identity")
	}
	if resolution.Failure != FailureNoToken {
		t.Errorf("expected no_token failure, got %q", resolution.Failure)
	}
}

func TestAuthenticateMalformedToken(t *testing.T) {
	store, _ := setupAuthed(t)

	resolution := resolveRequest(t, store, func(r *http.Request) {
		r.Header.Set(constants.HeaderAuthorization, constants.AuthBearerPrefix+"not-a-session-token")
	})
	if resolution.Failure != FailureMalformedToken {
		t.Errorf("expected malformed_token failure, got %q", resolution.Failure)
	}
}

func TestAuthenticateBearerToken(t *testing.T) {
	store, token := setupAuthed(t)

	resolution := resolveRequest(t, store, func(r *http.Request) {
		r.Header.Set(constants.HeaderAuthorization, constants.AuthBearerPrefix+token)
	})
	if resolution.Identity == nil || resolution.Identity.User == nil {
		t.Fatal("expected identity for valid bearer token")
	}
	if resolution.Identity.User.Email != "mw@example.com" {
		t.Errorf("unexpected user: %s", resolution.Identity.User.Email)
	}
}

func TestAuthenticateCookieToken(t *testing.T) {
	store, token := setupAuthed(t)

	resolution := resolveRequest(t, store, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: constants.AuthCookieName, Value: token})
	})
	if resolution.Identity == nil {
		t.Fatal("expected identity for valid cookie token")
	}
}

func TestAuthenticateCookieBeatsHeader(t *testing.T) {
	store, token := setupAuthed(t)

	// Valid cookie plus garbage header: the cookie must win
	resolution := resolveRequest(t, store, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: constants.AuthCookieName, Value: token})
		r.Header.Set(constants.HeaderAuthorization, constants.AuthBearerPrefix+"pvs_badtoken")
	})
	if resolution.Identity == nil {
		t.Fatal("expected cookie token to take precedence")
	}

	// Garbage cookie plus valid header: the cookie still wins, so auth fails
	resolution = resolveRequest(t, store, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: constants.AuthCookieName, Value: "pvs_badtoken"})
		r.Header.Set(constants.HeaderAuthorization, constants.AuthBearerPrefix+token)
	})
	if resolution.Identity != nil {
		t.Error("expected bad cookie to shadow the valid header")
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	store, token := setupAuthed(t)

	if _, err := store.db.Exec(`UPDATE sessions SET expires_at = ?`, time.Now().Unix()-10); err != nil {
		t.Fatalf("failed to expire session: %v", err)
	}

	resolution := resolveRequest(t, store, func(r *http.Request) {
		r.Header.Set(constants.HeaderAuthorization, constants.AuthBearerPrefix+token)
	})
	if resolution.Failure != FailureExpiredToken {
		t.Errorf("expected expired_token failure, got %q", resolution.Failure)
	}
}

func TestAuthenticateDeactivatedUser(t *testing.T) {
	store, token := setupAuthed(t)

	user, err := store.GetUserByEmail("mw@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if err := store.UpdateUser(user.ID, user.Name, user.Role, false); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	resolution := resolveRequest(t, store, func(r *http.Request) {
		r.Header.Set(constants.HeaderAuthorization, constants.AuthBearerPrefix+token)
	})
	if resolution.Failure != FailureUnknownOrInactiveUser {
		t.Errorf("expected unknown_or_inactive_user failure, got %q", resolution.Failure)
	}
}

func TestAuthenticateUnknownToken(t *testing.T) {
	store, _ := setupAuthed(t)

	token, _ := GenerateSessionToken()
	resolution := resolveRequest(t, store, func(r *http.Request) {
		r.Header.Set(constants.HeaderAuthorization, constants.AuthBearerPrefix+token)
	})
	if resolution.Failure != FailureUnknownOrInactiveUser {
		t.Errorf("expected unknown_or_inactive_user failure, got %q", resolution.Failure)
	}
}

func TestRequireAuth(t *testing.T) {
	store, token := setupAuthed(t)
	mw := NewMiddleware(func() *Store { return store }, logger.NewLogger("ERROR"))

	var gotIdentity *Identity
	var gotOK bool
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity, gotOK = RequireAuth(r)
	}))

	req := httptest.NewRequest("GET", "/api/papers", nil)
	req.Header.Set(constants.HeaderAuthorization, constants.AuthBearerPrefix+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !gotOK || gotIdentity == nil {
		t.Fatal("expected RequireAuth to succeed for valid token")
	}

	req = httptest.NewRequest("GET", "/api/papers", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if gotOK {
		t.Error("expected RequireAuth to fail without credentials")
	}
}
