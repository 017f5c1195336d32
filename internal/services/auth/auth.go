// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements local account registration, login and
// account management.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"codeberg.org/oliverandrich/talentgate-identity/internal/apperr"
	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"codeberg.org/oliverandrich/talentgate-identity/internal/repository"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/email"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/password"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/token"
	"github.com/go-playground/validator/v10"
)

// emails checks addresses for callers that bypass request validation.
var emails = validator.New()

func checkEmail(addr string) error {
	if err := emails.Var(addr, "required,email"); err != nil {
		return apperr.FieldErrors(map[string]string{"email": "must be a valid email address"})
	}
	return nil
}

// Store is the slice of the credential store the account service needs.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, upd repository.UserUpdate) error
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	SetUserRole(ctx context.Context, id int64, role models.Role) error
	SetUserActive(ctx context.Context, id int64, active bool) error
	TouchLastLogin(ctx context.Context, id int64) error
	CountAdmins(ctx context.Context) (int64, error)
}

// Tokens issues and revokes token pairs.
type Tokens interface {
	IssuePair(ctx context.Context, user *models.User) (*token.Pair, error)
	Revoke(ctx context.Context, userID int64) error
}

// Session is an identity together with a freshly issued token pair.
type Session struct {
	User *models.User `json:"user"`
	*token.Pair
}

// Service manages local accounts.
type Service struct {
	store     Store
	tokens    Tokens
	hasher    *password.Hasher
	validator *password.Validator
	mailer    email.Sender
}

// NewService creates the account service.
func NewService(store Store, tokens Tokens, hasher *password.Hasher, validator *password.Validator, mailer email.Sender) *Service {
	return &Service{
		store:     store,
		tokens:    tokens,
		hasher:    hasher,
		validator: validator,
		mailer:    mailer,
	}
}

// RegisterParams holds the parameters for user registration
type RegisterParams struct {
	Email    string
	Password string
	FullName string
	Role     models.Role
}

// Register creates a local account and signs it in. The welcome email is
// best effort.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*Session, error) {
	addr := models.NormalizeEmail(params.Email)
	if err := checkEmail(addr); err != nil {
		return nil, err
	}
	fullName := strings.TrimSpace(params.FullName)
	if fullName == "" {
		return nil, apperr.FieldErrors(map[string]string{"full_name": "is required"})
	}

	role := params.Role
	if role == "" {
		role = models.RoleCandidate
	}
	if !role.Valid() || role == models.RoleAdmin {
		return nil, apperr.FieldErrors(map[string]string{"role": "must be one of CANDIDATE, RECRUITER, HR"})
	}

	if err := s.validator.Check(params.Password, addr, fullName); err != nil {
		return nil, err
	}

	user, err := s.createLocal(ctx, addr, params.Password, fullName, role)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendWelcome(ctx, user.Email, user.FullName); err != nil {
		slog.WarnContext(ctx, "welcome_email_failed", "user_id", user.ID, "error", err)
	}

	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	slog.InfoContext(ctx, "register_success", "user_id", user.ID, "role", string(user.Role))
	return &Session{User: user, Pair: pair}, nil
}

func (s *Service) createLocal(ctx context.Context, addr, plain, fullName string, role models.Role) (*models.User, error) {
	// A duplicate is reported before hashing; the unique index still
	// settles concurrent registrations.
	if _, err := s.store.GetUserByEmail(ctx, addr); err == nil {
		return nil, apperr.EmailExists()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal(fmt.Errorf("check existing user: %w", err))
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	local := models.ProviderLocal
	user := &models.User{
		Email:        addr,
		PasswordHash: &hash,
		FullName:     fullName,
		Role:         role,
		IsActive:     true,
		AuthProvider: &local,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.EmailExists()
		}
		return nil, apperr.Internal(fmt.Errorf("create user: %w", err))
	}
	return user, nil
}

// Login checks the credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, addr, plain string) (*Session, error) {
	addr = models.NormalizeEmail(addr)

	user, err := s.store.GetUserByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform a hash comparison
			s.hasher.VerifyDummy(plain)
			slog.WarnContext(ctx, "login_failed", "reason", "user_not_found")
			return nil, apperr.LoginFailed()
		}
		return nil, apperr.Internal(fmt.Errorf("get user: %w", err))
	}

	if !user.HasPassword() {
		s.hasher.VerifyDummy(plain)
		slog.WarnContext(ctx, "login_failed", "user_id", user.ID, "reason", "no_local_password")
		return nil, apperr.LoginFailed()
	}
	if err := s.hasher.Verify(*user.PasswordHash, plain); err != nil {
		slog.WarnContext(ctx, "login_failed", "user_id", user.ID, "reason", "invalid_password")
		return nil, apperr.LoginFailed()
	}
	if !user.IsActive {
		slog.WarnContext(ctx, "login_failed", "user_id", user.ID, "reason", "deactivated")
		return nil, apperr.AccountDeactivated()
	}

	if err := s.store.TouchLastLogin(ctx, user.ID); err != nil {
		slog.WarnContext(ctx, "touch_last_login_failed", "user_id", user.ID, "error", err)
	}

	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	slog.InfoContext(ctx, "login_success", "user_id", user.ID)
	return &Session{User: user, Pair: pair}, nil
}

// IssueSession issues a token pair for an identity resolved elsewhere,
// such as a social sign-in.
func (s *Service) IssueSession(ctx context.Context, user *models.User) (*Session, error) {
	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{User: user, Pair: pair}, nil
}

// Logout ends the refresh token chain of the identity.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if err := s.tokens.Revoke(ctx, userID); err != nil {
		return apperr.Internal(err)
	}
	slog.InfoContext(ctx, "logout", "user_id", userID)
	return nil
}

// Me returns the current state of the identity.
func (s *Service) Me(ctx context.Context, userID int64) (*models.User, error) {
	return s.getUser(ctx, userID)
}

// ProfileUpdate lists the fields a user may change about themselves.
type ProfileUpdate struct {
	FullName *string
	PhotoURL *string
}

// UpdateProfile applies upd and returns the updated identity.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*models.User, error) {
	var change repository.UserUpdate
	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return nil, apperr.FieldErrors(map[string]string{"full_name": "must not be empty"})
		}
		change.FullName = &name
	}
	if upd.PhotoURL != nil {
		photo := strings.TrimSpace(*upd.PhotoURL)
		change.PhotoURL = &photo
	}
	if change.FullName == nil && change.PhotoURL == nil {
		return s.getUser(ctx, userID)
	}

	if err := s.store.UpdateUser(ctx, userID, change); err != nil {
		return nil, mapStoreError(err)
	}
	return s.getUser(ctx, userID)
}

// ChangePassword changes a user's password (when they know their current password)
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasPassword() {
		return apperr.Validation("This account has no password yet. Use the password reset to set one.")
	}

	if err := s.hasher.Verify(*user.PasswordHash, current); err != nil {
		return apperr.FieldErrors(map[string]string{"current_password": "is incorrect"})
	}
	if err := s.validator.Check(next, user.Email, user.FullName); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.store.UpdateUserPassword(ctx, userID, hash); err != nil {
		return mapStoreError(err)
	}
	if err := s.tokens.Revoke(ctx, userID); err != nil {
		slog.ErrorContext(ctx, "password_change_revoke_failed", "user_id", userID, "error", err)
	}

	slog.InfoContext(ctx, "password_changed", "user_id", userID)
	return nil
}

// SetRole changes the role of userID. The last active admin cannot be demoted.
func (s *Service) SetRole(ctx context.Context, userID int64, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, apperr.FieldErrors(map[string]string{"role": "must be one of CANDIDATE, RECRUITER, HR, ADMIN"})
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}

	if err := s.store.SetUserRole(ctx, userID, role); err != nil {
		return nil, mapStoreError(err)
	}
	slog.InfoContext(ctx, "role_changed", "user_id", userID, "from", string(user.Role), "to", string(role))
	return s.getUser(ctx, userID)
}

// SetActive activates or deactivates userID. Deactivation also ends its
// refresh token chain.
func (s *Service) SetActive(ctx context.Context, userID int64, active bool) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsActive == active {
		return user, nil
	}

	if err := s.store.SetUserActive(ctx, userID, active); err != nil {
		return nil, mapStoreError(err)
	}
	if !active {
		if err := s.tokens.Revoke(ctx, userID); err != nil {
			slog.ErrorContext(ctx, "deactivate_revoke_failed", "user_id", userID, "error", err)
		}
	}
	slog.InfoContext(ctx, "status_changed", "user_id", userID, "active", active)
	return s.getUser(ctx, userID)
}

// EnsureAdmin ensures at least one admin exists, creating one if needed
func (s *Service) EnsureAdmin(ctx context.Context, addr, plain string) error {
	count, err := s.store.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err = s.CreateAdmin(ctx, addr, plain, "Administrator")
	return err
}

// CreateAdmin creates an admin account or promotes the existing account
// with that email.
func (s *Service) CreateAdmin(ctx context.Context, addr, plain, fullName string) (*models.User, error) {
	addr = models.NormalizeEmail(addr)
	if err := checkEmail(addr); err != nil {
		return nil, err
	}

	existing, err := s.store.GetUserByEmail(ctx, addr)
	switch {
	case err == nil:
		admin := models.RoleAdmin
		active := true
		if err := s.store.UpdateUser(ctx, existing.ID, repository.UserUpdate{Role: &admin, IsActive: &active}); err != nil {
			return nil, fmt.Errorf("failed to promote admin: %w", err)
		}
		slog.InfoContext(ctx, "admin_promoted", "user_id", existing.ID)
		return s.getUser(ctx, existing.ID)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.validator.Check(plain, addr, fullName); err != nil {
		return nil, err
	}
	user, err := s.createLocal(ctx, addr, plain, fullName, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "admin_created", "user_id", user.ID)
	return user, nil
}

func (s *Service) getUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return user, nil
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("User not found")
	case errors.Is(err, repository.ErrLastAdmin):
		return apperr.Validation("The last active administrator cannot be demoted or deactivated")
	}
	return apperr.Internal(err)
}
