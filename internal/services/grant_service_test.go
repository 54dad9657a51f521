package services

import (
	"errors"
	"testing"

	"papervault/internal/constants"
)

func newTestGrantService(t *testing.T) (*GrantService, *PaperService, *mockAppState) {
	t.Helper()
	app := newMockAppState(t)
	grants := NewGrantService(app, app.log)
	papers := NewPaperService(app, app.log)
	if grants == nil || papers == nil {
		t.Fatal("service construction failed")
	}
	return grants, papers, app
}

func TestAssignGrant(t *testing.T) {
	grants, papers, app := newTestGrantService(t)
	admin := createTestUser(t, app, "admin@example.com", constants.RoleAdmin)
	researcher := createTestUser(t, app, "alice@example.com", constants.RoleResearcher)

	paper := uploadTestPaper(t, papers, admin, "Shared Paper")

	grant, err := grants.Assign(admin, paper.ID, researcher.User.ID)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if grant.PaperID != paper.ID || grant.UserID != researcher.User.ID {
		t.Errorf("grant pair wrong: paper=%d user=%d", grant.PaperID, grant.UserID)
	}
	if grant.GrantedBy != admin.User.ID {
		t.Errorf("granted_by = %d, want %d", grant.GrantedBy, admin.User.ID)
	}

	// The grant immediately opens access.
	if _, err := papers.Get(researcher, paper.ID); err != nil {
		t.Errorf("granted user still denied: %v", err)
	}
}

func TestAssignGrantConflict(t *testing.T) {
	grants, papers, app := newTestGrantService(t)
	admin := createTestUser(t, app, "admin@example.com", constants.RoleAdmin)
	researcher := createTestUser(t, app, "alice@example.com", constants.RoleResearcher)

	paper := uploadTestPaper(t, papers, admin, "Shared Paper")

	if _, err := grants.Assign(admin, paper.ID, researcher.User.ID); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}
	if _, err := grants.Assign(admin, paper.ID, researcher.User.ID); !errors.Is(err, ErrGrantExists) {
		t.Errorf("expected ErrGrantExists, got %v", err)
	}
}

func TestAssignGrantValidation(t *testing.T) {
	grants, papers, app := newTestGrantService(t)
	admin := createTestUser(t, app, "admin@example.com", constants.RoleAdmin)
	researcher := createTestUser(t, app, "alice@example.com", constants.RoleResearcher)
	disabled := createTestUser(t, app, "bob@example.com", constants.RoleReviewer)

	paper := uploadTestPaper(t, papers, admin, "Shared Paper")

	if _, err := grants.Assign(researcher, paper.ID, researcher.User.ID); !errors.Is(err, ErrAuthForbidden) {
		t.Errorf("non-admin assigned a grant: %v", err)
	}

	if _, err := grants.Assign(admin, 9999, researcher.User.ID); err == nil {
		t.Error("grant created for missing paper")
	}

	if _, err := grants.Assign(admin, paper.ID, 9999); !errors.Is(err, ErrAuthUserNotFound) {
		t.Errorf("expected ErrAuthUserNotFound, got %v", err)
	}

	if err := grants.store.UpdateUser(disabled.User.ID, disabled.User.Name, disabled.User.Role, false); err != nil {
		t.Fatalf("failed to disable user: %v", err)
	}
	if _, err := grants.Assign(admin, paper.ID, disabled.User.ID); !errors.Is(err, ErrAuthUserDisabled) {
		t.Errorf("expected ErrAuthUserDisabled, got %v", err)
	}
}

func TestRevokeGrant(t *testing.T) {
	grants, papers, app := newTestGrantService(t)
	admin := createTestUser(t, app, "admin@example.com", constants.RoleAdmin)
	researcher := createTestUser(t, app, "alice@example.com", constants.RoleResearcher)

	paper := uploadTestPaper(t, papers, admin, "Shared Paper")

	grant, err := grants.Assign(admin, paper.ID, researcher.User.ID)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	revoked, err := grants.Revoke(admin, grant.ID)
	if err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if revoked.IsActive {
		t.Error("revoked grant still active")
	}
	if revoked.RevokedBy == nil || *revoked.RevokedBy != admin.User.ID {
		t.Error("revoked_by not recorded")
	}

	// Access closes immediately.
	if _, err := papers.Get(researcher, paper.ID); !errors.Is(err, ErrAuthForbidden) {
		t.Errorf("revoked user still has access: %v", err)
	}

	// Revoking again reports not found.
	if _, err := grants.Revoke(admin, grant.ID); !errors.Is(err, ErrGrantNotFound) {
		t.Errorf("expected ErrGrantNotFound, got %v", err)
	}
}

func TestRegrantAfterRevoke(t *testing.T) {
	grants, papers, app := newTestGrantService(t)
	admin := createTestUser(t, app, "admin@example.com", constants.RoleAdmin)
	researcher := createTestUser(t, app, "alice@example.com", constants.RoleResearcher)

	paper := uploadTestPaper(t, papers, admin, "Shared Paper")

	first, err := grants.Assign(admin, paper.ID, researcher.User.ID)
	if err != nil {
		t.Fatalf("first assign failed: %v", err)
	}
	if _, err := grants.Revoke(admin, first.ID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	second, err := grants.Assign(admin, paper.ID, researcher.User.ID)
	if err != nil {
		t.Fatalf("re-grant after revoke failed: %v", err)
	}
	if second.ID == first.ID {
		t.Error("re-grant reused the revoked row")
	}

	// History keeps both rows.
	history, err := grants.ListForPaper(admin, paper.ID)
	if err != nil {
		t.Fatalf("ListForPaper failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history rows = %d, want 2", len(history))
	}
}

func TestListForUser(t *testing.T) {
	grants, papers, app := newTestGrantService(t)
	admin := createTestUser(t, app, "admin@example.com", constants.RoleAdmin)
	researcher := createTestUser(t, app, "alice@example.com", constants.RoleResearcher)

	first := uploadTestPaper(t, papers, admin, "Paper One")
	second := uploadTestPaper(t, papers, admin, "Paper Two")

	if _, err := grants.Assign(admin, first.ID, researcher.User.ID); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	g2, err := grants.Assign(admin, second.ID, researcher.User.ID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if _, err := grants.Revoke(admin, g2.ID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	active, err := grants.ListForUser(admin, researcher.User.ID)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(active) != 1 || active[0].PaperID != first.ID {
		t.Errorf("active grants wrong: %+v", active)
	}

	if _, err := grants.ListForUser(researcher, researcher.User.ID); !errors.Is(err, ErrAuthForbidden) {
		t.Errorf("non-admin listed grants: %v", err)
	}
}
