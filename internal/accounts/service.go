// Package accounts handles registration, authentication and user
// management for every role in the clinic.
package accounts

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Store is the persistence surface the service depends on
type Store interface {
	CreateUser(user *types.User) error
	GetUserByID(id string) (*types.User, error)
	GetUserByEmail(email string) (*types.User, error)
	EmailExists(email string) (bool, error)
	ListUsers(role types.UserRole) ([]*types.User, error)
	UpdateUser(id string, updates *types.UserUpdates) error
	DeactivateUser(id string) error
	GetProfile(userID string) (*types.UserProfile, error)
	UpsertProfile(profile *types.UserProfile) error
}

// ActivityRecorder receives audit entries for account mutations
type ActivityRecorder interface {
	Record(ctx context.Context, action, target, details string) error
}

// Service implements account business logic
type Service struct {
	store     Store
	passwords *PasswordManager
	tokens    *TokenManager
	activity  ActivityRecorder
	logger    *logger.Logger
}

// NewService creates a new accounts service
func NewService(store Store, passwords *PasswordManager, tokens *TokenManager, activity ActivityRecorder, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		passwords: passwords,
		tokens:    tokens,
		activity:  activity,
		logger:    log,
	}
}

func (s *Service) recordActivity(ctx context.Context, action, target, details string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, action, target, details); err != nil {
		s.logger.WithError(err).Warn("Failed to record audit entry")
	}
}

// Register creates a new user account. Email is the login key and must be
// unique.
func (s *Service) Register(ctx context.Context, req *types.RegistrationRequest) (*types.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "A valid email address is required.")
	}

	if req.Username == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Username is required.")
	}

	role := req.Role
	if role == "" {
		role = types.RolePatient
	}
	if !role.IsValid() {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid role.")
	}

	exists, err := s.store.EmailExists(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, types.NewConflictError(types.ErrCodeEmailExists, "A user with this email already exists.")
	}

	hash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &types.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Gender:       req.Gender,
		Phone:        req.Phone,
		Address:      req.Address,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(user); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User registered")

	return user, nil
}

// Authenticate verifies credentials and issues a token pair. Wrong email and
// wrong password produce the same error so accounts cannot be enumerated.
func (s *Service) Authenticate(ctx context.Context, creds *types.Credentials) (*types.AuthToken, *types.User, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))

	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if _, ok := types.AsClinicError(err); ok {
			s.logger.Security("login_failed", "", map[string]interface{}{"email": email})
			return nil, nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid email or password.")
		}
		return nil, nil, err
	}

	if !s.passwords.VerifyPassword(user.PasswordHash, creds.Password) {
		s.logger.Security("login_failed", user.ID, nil)
		return nil, nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid email or password.")
	}

	if !user.IsActive {
		return nil, nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Account is deactivated.")
	}

	token, err := s.tokens.GenerateTokenPair(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.WithUserID(user.ID).Info("User authenticated")
	return token, user, nil
}

// RefreshToken exchanges a valid refresh token for a fresh token pair
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*types.AuthToken, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(claims.UserID)
	if err != nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid or expired token.")
	}

	if !user.IsActive {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Account is deactivated.")
	}

	return s.tokens.GenerateTokenPair(user)
}

// GetUser retrieves a user. Users may read themselves; staff may read
// anyone.
func (s *Service) GetUser(ctx context.Context, actor *types.UserClaims, id string) (*types.User, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	if actor.UserID != id && !actor.Role.IsStaff() {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to view this user.")
	}

	return s.store.GetUserByID(id)
}

// ListUsers is a staff-only directory listing
func (s *Service) ListUsers(ctx context.Context, actor *types.UserClaims, role types.UserRole) ([]*types.User, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	if !actor.Role.IsStaff() {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to list users.")
	}

	if role != "" && !role.IsValid() {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid role filter.")
	}

	return s.store.ListUsers(role)
}

// UpdateUser applies a partial update. Changing is_active is a staff
// privilege; everything else a user may change on their own account.
func (s *Service) UpdateUser(ctx context.Context, actor *types.UserClaims, id string, updates *types.UserUpdates) (*types.User, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	if actor.UserID != id && !actor.Role.IsStaff() {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to update this user.")
	}

	if updates.IsActive != nil && !actor.Role.IsStaff() {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "Only staff may change account activation.")
	}

	if err := s.store.UpdateUser(id, updates); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, "user.update", id, "")
	return s.store.GetUserByID(id)
}

// DeactivateUser disables an account without deleting it
func (s *Service) DeactivateUser(ctx context.Context, actor *types.UserClaims, id string) error {
	if actor == nil {
		return types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	if actor.UserID != id && !actor.Role.IsStaff() {
		return types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to deactivate this user.")
	}

	if err := s.store.DeactivateUser(id); err != nil {
		return err
	}

	s.recordActivity(ctx, "user.deactivate", id, "")
	return nil
}

// GetProfile retrieves the extended profile for a user
func (s *Service) GetProfile(ctx context.Context, actor *types.UserClaims, userID string) (*types.UserProfile, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	if actor.UserID != userID && !actor.Role.IsStaff() {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to view this profile.")
	}

	return s.store.GetProfile(userID)
}

// UpdateProfile creates or replaces a user's extended profile
func (s *Service) UpdateProfile(ctx context.Context, actor *types.UserClaims, userID string, profile *types.UserProfile) (*types.UserProfile, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	if actor.UserID != userID && !actor.Role.IsStaff() {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to update this profile.")
	}

	// Verification flags are set by staff, never self-asserted
	if profile.Verified && !actor.Role.IsStaff() {
		profile.Verified = false
	}

	profile.UserID = userID
	if err := s.store.UpsertProfile(profile); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, "profile.update", userID, "")
	return profile, nil
}
