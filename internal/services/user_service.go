package services

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"papervault/internal/auth"
	"papervault/internal/constants"
	"papervault/internal/logger"
)

var emailRegex = regexp.MustCompile(constants.AuthEmailRegex)

// UserService manages user accounts. All mutating operations require an
// admin actor; role and activation changes carry extra guards.
type UserService struct {
	app    AppState
	logger *logger.Logger
	store  *auth.Store
}

// NewUserService creates a new user service.
func NewUserService(app AppState, log *logger.Logger) *UserService {
	db := app.GetDB()
	if db == nil {
		return nil
	}
	return &UserService{
		app:    app,
		logger: log,
		store:  auth.NewStore(db),
	}
}

// CreateUserRequest contains the fields for creating a new user.
type CreateUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// CreateUserResponse contains the result of creating a user.
type CreateUserResponse struct {
	User              *auth.User `json:"user"`
	TemporaryPassword string     `json:"temporary_password"` // plaintext, shown once
}

// CreateUser creates a new account with a generated temporary password.
// The plaintext password is returned once to the caller and never stored;
// the new user must change it at first login.
func (s *UserService) CreateUser(actor *auth.Identity, req CreateUserRequest) (*CreateUserResponse, error) {
	if !actor.User.IsAdmin() {
		return nil, ErrAuthForbidden
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if !emailRegex.MatchString(email) {
		return nil, ErrValidation("invalid email address")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrMissingParamWithName("name")
	}
	if len(name) > constants.AuthMaxNameLength {
		return nil, ErrValidation(fmt.Sprintf("name must be at most %d characters", constants.AuthMaxNameLength))
	}

	if !isValidRole(req.Role) {
		return nil, NewServiceError(constants.ErrCodeAuthInvalidRole,
			fmt.Sprintf("invalid role: %s", req.Role))
	}

	// Only a super admin may mint another super admin.
	if req.Role == constants.RoleSuperAdmin && !actor.User.IsSuperAdmin() {
		return nil, ErrAuthForbidden
	}

	existing, err := s.store.GetUserByEmail(email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, WrapInternalError(err)
	}
	if existing != nil {
		return nil, ErrAuthUserExists
	}

	tempPassword, err := auth.GenerateTemporaryPassword()
	if err != nil {
		return nil, WrapInternalError(err)
	}

	hash, err := auth.HashPassword(tempPassword)
	if err != nil {
		return nil, WrapInternalError(err)
	}

	user, err := s.store.CreateUser(email, name, req.Role, hash, true, &actor.User.ID)
	if err != nil {
		return nil, WrapInternalError(err)
	}

	s.logger.Info("Auth: user=%s (role=%s) created by=%s (id=%d)",
		email, req.Role, actor.User.Email, user.ID)

	return &CreateUserResponse{
		User:              user,
		TemporaryPassword: tempPassword,
	}, nil
}

// GetUser returns a user by ID.
func (s *UserService) GetUser(id int64) (*auth.User, error) {
	user, err := s.store.GetUserByID(id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAuthUserNotFound
	}
	if err != nil {
		return nil, WrapInternalError(err)
	}
	return &user.User, nil
}

// ListUsers returns all users.
func (s *UserService) ListUsers() ([]auth.User, error) {
	return s.store.ListUsers()
}

// UpdateUserRequest contains fields for updating a user.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// UpdateUser updates a user's profile, role, or active flag.
// Admins cannot demote or deactivate themselves, and the bootstrap account
// can never be deactivated. Deactivating a user invalidates their sessions.
func (s *UserService) UpdateUser(actor *auth.Identity, userID int64, req UpdateUserRequest) (*auth.User, error) {
	if !actor.User.IsAdmin() {
		return nil, ErrAuthForbidden
	}

	user, err := s.store.GetUserByID(userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAuthUserNotFound
	}
	if err != nil {
		return nil, WrapInternalError(err)
	}

	name := user.Name
	role := user.Role
	isActive := user.IsActive

	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrMissingParamWithName("name")
		}
		if len(name) > constants.AuthMaxNameLength {
			return nil, ErrValidation(fmt.Sprintf("name must be at most %d characters", constants.AuthMaxNameLength))
		}
	}

	if req.Role != nil {
		if !isValidRole(*req.Role) {
			return nil, NewServiceError(constants.ErrCodeAuthInvalidRole,
				fmt.Sprintf("invalid role: %s", *req.Role))
		}
		if *req.Role == constants.RoleSuperAdmin && !actor.User.IsSuperAdmin() {
			return nil, ErrAuthForbidden
		}
		if userID == actor.User.ID && *req.Role != actor.User.Role {
			return nil, ErrAuthSelfDemotion
		}
		role = *req.Role
	}

	if req.IsActive != nil {
		if userID == actor.User.ID && !*req.IsActive {
			return nil, ErrAuthSelfDemotion
		}
		if user.IsBootstrap && !*req.IsActive {
			return nil, ErrValidation("cannot deactivate the bootstrap account")
		}
		isActive = *req.IsActive
	}

	if err := s.store.UpdateUser(userID, name, role, isActive); err != nil {
		return nil, WrapInternalError(err)
	}

	// Deactivation kills every live session for the account.
	if req.IsActive != nil && !*req.IsActive {
		if err := s.store.DeleteUserSessions(userID); err != nil {
			s.logger.Warn("Auth: failed to invalidate sessions for deactivated user id=%d: %v", userID, err)
		}
		s.logger.Info("Auth: user id=%d deactivated by=%s, sessions invalidated", userID, actor.User.Email)
	}

	updated, err := s.store.GetUserByID(userID)
	if err != nil {
		return nil, WrapInternalError(err)
	}

	s.logger.Info("Auth: user id=%d updated by=%s", userID, actor.User.Email)
	return &updated.User, nil
}

// isValidRole reports whether role is one of the defined roles.
func isValidRole(role string) bool {
	for _, r := range constants.AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
