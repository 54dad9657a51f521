package auth

import (
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"papervault/internal/constants"
	"papervault/internal/database"
)

// setupTestDB creates an in-memory SQLite database with the application schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	// A pooled second connection would see a different in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := database.ApplySchema(db); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	return db
}

// setupTestStore creates a store backed by an in-memory DB.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(setupTestDB(t))
}

// ============================================================================
// User CRUD Tests
// ============================================================================

func TestCreateUser(t *testing.T) {
	store := setupTestStore(t)

	user, err := store.CreateUser("alice@example.com", "Alice", constants.RoleResearcher, "hash123", true, nil)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if user.ID == 0 {
		t.Error("expected non-zero user ID")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("expected email 'alice@example.com', got %q", user.Email)
	}
	if user.Role != constants.RoleResearcher {
		t.Errorf("expected role researcher, got %q", user.Role)
	}
	if !user.IsTemporaryPassword {
		t.Error("expected temporary password flag to be set")
	}
	if !user.IsActive {
		t.Error("expected user to be active")
	}
	if user.IsBootstrap {
		t.Error("expected user not to be bootstrap")
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.CreateUser("dup@example.com", "User 1", constants.RoleResearcher, "hash1", false, nil)
	if err != nil {
		t.Fatalf("first CreateUser failed: %v", err)
	}

	_, err = store.CreateUser("dup@example.com", "User 2", constants.RoleReviewer, "hash2", false, nil)
	if err == nil {
		t.Fatal("expected error for duplicate email")
	}
}

func TestGetUserByEmailCaseInsensitive(t *testing.T) {
	store := setupTestStore(t)

	created, err := store.CreateUser("Mixed.Case@Example.com", "Mixed", constants.RoleReviewer, "hash", false, nil)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	found, err := store.GetUserByEmail("mixed.case@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("expected user %d, got %d", created.ID, found.ID)
	}
}

func TestCreateBootstrapUser(t *testing.T) {
	store := setupTestStore(t)

	user, err := store.CreateBootstrapUser("admin@papervault.local", "Administrator", "pwhash")
	if err != nil {
		t.Fatalf("CreateBootstrapUser failed: %v", err)
	}

	if !user.IsBootstrap {
		t.Error("expected bootstrap user to have is_bootstrap=true")
	}
	if user.Role != constants.RoleSuperAdmin {
		t.Errorf("expected role super_admin, got %q", user.Role)
	}
	if !user.IsTemporaryPassword {
		t.Error("expected bootstrap user to have a temporary password")
	}
}

func TestUpdateUserPassword(t *testing.T) {
	store := setupTestStore(t)

	user, err := store.CreateUser("pw@example.com", "PW", constants.RoleResearcher, "oldhash", true, nil)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := store.UpdateUserPassword(user.ID, "newhash", false); err != nil {
		t.Fatalf("UpdateUserPassword failed: %v", err)
	}

	loaded, err := store.GetUserByID(user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if loaded.PasswordHash != "newhash" {
		t.Errorf("expected stored hash to be replaced, got %q", loaded.PasswordHash)
	}
	if loaded.IsTemporaryPassword {
		t.Error("expected temporary flag to be cleared")
	}
}

func TestRecordLogin(t *testing.T) {
	store := setupTestStore(t)

	user, err := store.CreateUser("login@example.com", "L", constants.RoleResearcher, "hash", false, nil)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := store.RecordLogin(user.ID); err != nil {
		t.Fatalf("RecordLogin failed: %v", err)
	}

	loaded, err := store.GetUserByID(user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if loaded.LastLoginAt == nil {
		t.Fatal("expected last_login_at to be set")
	}
}

// ============================================================================
// Grant Tests
// ============================================================================

// createTestPaper inserts a minimal paper row directly for grant tests.
func createTestPaper(t *testing.T, store *Store, uploadedBy int64) int64 {
	t.Helper()
	now := time.Now().Unix()
	result, err := store.db.Exec(`
		INSERT INTO papers (title, confidentiality, status, file_name, blob_key, file_size,
		                    uploaded_by, created_at, updated_at)
		VALUES ('Test Paper', 'medium', 'published', 'test.pdf', 'blob-1', 100, ?, ?, ?)
	`, uploadedBy, now, now)
	if err != nil {
		t.Fatalf("failed to insert test paper: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

func TestCreateGrant(t *testing.T) {
	store := setupTestStore(t)

	admin, _ := store.CreateUser("admin@example.com", "Admin", constants.RoleAdmin, "hash", false, nil)
	user, _ := store.CreateUser("user@example.com", "User", constants.RoleResearcher, "hash", false, nil)
	paperID := createTestPaper(t, store, admin.ID)

	grant, err := store.CreateGrant(paperID, user.ID, admin.ID)
	if err != nil {
		t.Fatalf("CreateGrant failed: %v", err)
	}

	if grant.ID == 0 {
		t.Error("expected non-zero grant ID")
	}
	if !grant.IsActive {
		t.Error("expected grant to be active")
	}

	has, err := store.HasActiveGrant(paperID, user.ID)
	if err != nil {
		t.Fatalf("HasActiveGrant failed: %v", err)
	}
	if !has {
		t.Error("expected active grant to exist")
	}
}

func TestCreateGrantConflict(t *testing.T) {
	store := setupTestStore(t)

	admin, _ := store.CreateUser("admin@example.com", "Admin", constants.RoleAdmin, "hash", false, nil)
	user, _ := store.CreateUser("user@example.com", "User", constants.RoleResearcher, "hash", false, nil)
	paperID := createTestPaper(t, store, admin.ID)

	if _, err := store.CreateGrant(paperID, user.ID, admin.ID); err != nil {
		t.Fatalf("first CreateGrant failed: %v", err)
	}

	_, err := store.CreateGrant(paperID, user.ID, admin.ID)
	var conflict *ErrGrantConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrGrantConflict, got %v", err)
	}
}

func TestCreateGrantConcurrent(t *testing.T) {
	store := setupTestStore(t)

	admin, _ := store.CreateUser("admin@example.com", "Admin", constants.RoleAdmin, "hash", false, nil)
	user, _ := store.CreateUser("user@example.com", "User", constants.RoleResearcher, "hash", false, nil)
	paperID := createTestPaper(t, store, admin.ID)

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = store.CreateGrant(paperID, user.ID, admin.ID)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		}
	}
	if successes != 1 {
		t.Errorf("expected exactly 1 successful grant, got %d", successes)
	}

	grants, err := store.ListGrantsForPaper(paperID)
	if err != nil {
		t.Fatalf("ListGrantsForPaper failed: %v", err)
	}
	active := 0
	for _, g := range grants {
		if g.IsActive {
			active++
		}
	}
	if active != 1 {
		t.Errorf("expected exactly 1 active grant, got %d", active)
	}
}

func TestRevokeGrant(t *testing.T) {
	store := setupTestStore(t)

	admin, _ := store.CreateUser("admin@example.com", "Admin", constants.RoleAdmin, "hash", false, nil)
	user, _ := store.CreateUser("user@example.com", "User", constants.RoleResearcher, "hash", false, nil)
	paperID := createTestPaper(t, store, admin.ID)

	if _, err := store.CreateGrant(paperID, user.ID, admin.ID); err != nil {
		t.Fatalf("CreateGrant failed: %v", err)
	}

	revoked, err := store.RevokeGrant(paperID, user.ID, admin.ID)
	if err != nil {
		t.Fatalf("RevokeGrant failed: %v", err)
	}
	if revoked == nil {
		t.Fatal("expected revoked grant, got nil")
	}
	if revoked.IsActive {
		t.Error("expected revoked grant to be inactive")
	}
	if revoked.RevokedAt == nil || revoked.RevokedBy == nil {
		t.Error("expected revocation metadata to be set")
	}

	has, _ := store.HasActiveGrant(paperID, user.ID)
	if has {
		t.Error("expected no active grant after revocation")
	}
}

func TestRevokeGrantNoActive(t *testing.T) {
	store := setupTestStore(t)

	admin, _ := store.CreateUser("admin@example.com", "Admin", constants.RoleAdmin, "hash", false, nil)
	user, _ := store.CreateUser("user@example.com", "User", constants.RoleResearcher, "hash", false, nil)
	paperID := createTestPaper(t, store, admin.ID)

	revoked, err := store.RevokeGrant(paperID, user.ID, admin.ID)
	if err != nil {
		t.Fatalf("RevokeGrant failed: %v", err)
	}
	if revoked != nil {
		t.Error("expected nil for revoking a non-existent grant")
	}
}

func TestRegrantAfterRevoke(t *testing.T) {
	store := setupTestStore(t)

	admin, _ := store.CreateUser("admin@example.com", "Admin", constants.RoleAdmin, "hash", false, nil)
	user, _ := store.CreateUser("user@example.com", "User", constants.RoleResearcher, "hash", false, nil)
	paperID := createTestPaper(t, store, admin.ID)

	if _, err := store.CreateGrant(paperID, user.ID, admin.ID); err != nil {
		t.Fatalf("CreateGrant failed: %v", err)
	}
	if _, err := store.RevokeGrant(paperID, user.ID, admin.ID); err != nil {
		t.Fatalf("RevokeGrant failed: %v", err)
	}

	// Revoked rows must not block a new grant
	if _, err := store.CreateGrant(paperID, user.ID, admin.ID); err != nil {
		t.Fatalf("re-grant after revoke failed: %v", err)
	}

	grants, _ := store.ListGrantsForPaper(paperID)
	if len(grants) != 2 {
		t.Errorf("expected 2 grant rows (revoked + active), got %d", len(grants))
	}
}

// ============================================================================
// Session Tests
// ============================================================================

func TestCreateAndGetSession(t *testing.T) {
	store := setupTestStore(t)

	user, _ := store.CreateUser("sess@example.com", "S", constants.RoleResearcher, "hash", false, nil)

	session, err := store.CreateSession("hash-abc", "pvs_1234", user.ID, "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.ExpiresAt <= session.CreatedAt {
		t.Error("expected expiry after creation time")
	}

	got, gotUser, err := store.GetSessionByTokenHash("hash-abc")
	if err != nil {
		t.Fatalf("GetSessionByTokenHash failed: %v", err)
	}
	if got == nil || gotUser == nil {
		t.Fatal("expected session and user")
	}
	if gotUser.ID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, gotUser.ID)
	}
}

func TestGetSessionUnknownToken(t *testing.T) {
	store := setupTestStore(t)

	session, user, err := store.GetSessionByTokenHash("no-such-hash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session != nil || user != nil {
		t.Error("expected nil session and user for unknown token")
	}
}

func TestSessionRejectedForInactiveUser(t *testing.T) {
	store := setupTestStore(t)

	user, _ := store.CreateUser("gone@example.com", "G", constants.RoleResearcher, "hash", false, nil)
	if _, err := store.CreateSession("hash-gone", "pvs_1234", user.ID, "127.0.0.1", ""); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Deactivate the user; the session row still exists but must be rejected
	if err := store.UpdateUser(user.ID, user.Name, user.Role, false); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	session, gotUser, err := store.GetSessionByTokenHash("hash-gone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session != nil || gotUser != nil {
		t.Error("expected session to be rejected for deactivated user")
	}

	_, inactive, err := store.SessionExistsExpiredOrInactive("hash-gone")
	if err != nil {
		t.Fatalf("SessionExistsExpiredOrInactive failed: %v", err)
	}
	if !inactive {
		t.Error("expected token to classify as inactive user")
	}
}

func TestSessionExpiry(t *testing.T) {
	store := setupTestStore(t)

	user, _ := store.CreateUser("exp@example.com", "E", constants.RoleResearcher, "hash", false, nil)
	if _, err := store.CreateSession("hash-exp", "pvs_1234", user.ID, "127.0.0.1", ""); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Force the session into the past
	if _, err := store.db.Exec(`UPDATE sessions SET expires_at = ? WHERE token_hash = 'hash-exp'`,
		time.Now().Unix()-10); err != nil {
		t.Fatalf("failed to expire session: %v", err)
	}

	session, gotUser, err := store.GetSessionByTokenHash("hash-exp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session != nil || gotUser != nil {
		t.Error("expected expired session to be rejected")
	}

	expired, _, err := store.SessionExistsExpiredOrInactive("hash-exp")
	if err != nil {
		t.Fatalf("SessionExistsExpiredOrInactive failed: %v", err)
	}
	if !expired {
		t.Error("expected token to classify as expired")
	}
}

func TestDeleteUserSessions(t *testing.T) {
	store := setupTestStore(t)

	user, _ := store.CreateUser("multi@example.com", "M", constants.RoleResearcher, "hash", false, nil)
	store.CreateSession("hash-1", "pvs_1111", user.ID, "127.0.0.1", "")
	store.CreateSession("hash-2", "pvs_2222", user.ID, "127.0.0.1", "")

	if err := store.DeleteUserSessions(user.ID); err != nil {
		t.Fatalf("DeleteUserSessions failed: %v", err)
	}

	for _, h := range []string{"hash-1", "hash-2"} {
		session, _, _ := store.GetSessionByTokenHash(h)
		if session != nil {
			t.Errorf("expected session %s to be deleted", h)
		}
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	store := setupTestStore(t)

	user, _ := store.CreateUser("clean@example.com", "C", constants.RoleResearcher, "hash", false, nil)
	store.CreateSession("hash-live", "pvs_1111", user.ID, "127.0.0.1", "")
	store.CreateSession("hash-dead", "pvs_2222", user.ID, "127.0.0.1", "")

	store.db.Exec(`UPDATE sessions SET expires_at = ? WHERE token_hash = 'hash-dead'`,
		time.Now().Unix()-10)

	removed, err := store.CleanupExpiredSessions()
	if err != nil {
		t.Fatalf("CleanupExpiredSessions failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 session removed, got %d", removed)
	}

	live, _, _ := store.GetSessionByTokenHash("hash-live")
	if live == nil {
		t.Error("expected live session to survive cleanup")
	}
}
