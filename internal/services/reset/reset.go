// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package reset issues and consumes single-use password reset codes.
package reset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/talentgate-identity/internal/apperr"
	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"codeberg.org/oliverandrich/talentgate-identity/internal/repository"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/email"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/password"
)

// DefaultTTL is how long a reset code stays valid.
const DefaultTTL = 15 * time.Minute

// maxCodeAttempts bounds retries when a fresh code collides with a live one.
const maxCodeAttempts = 3

// Store is the slice of the credential store the reset manager needs.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ReplaceResetCode(ctx context.Context, userID int64, purpose models.ResetPurpose, codeHash string, ttl time.Duration) (*models.ResetCode, error)
	ConsumeResetCode(ctx context.Context, codeHash string, purpose models.ResetPurpose, passwordHash string) (int64, error)
	DeleteExpiredResetCodes(ctx context.Context) (int64, error)
}

// SessionRevoker ends outstanding refresh tokens after a password change.
type SessionRevoker interface {
	Revoke(ctx context.Context, userID int64) error
}

// Outcome classifies a reset request for logging. Clients always see the
// same response.
type Outcome int

const (
	OutcomeDispatched Outcome = iota
	OutcomeUnknownEmail
	OutcomeInactive
	OutcomeDispatchFailed
	OutcomeStoreFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDispatched:
		return "dispatched"
	case OutcomeUnknownEmail:
		return "unknown_email"
	case OutcomeInactive:
		return "inactive"
	case OutcomeDispatchFailed:
		return "dispatch_failed"
	default:
		return "store_failed"
	}
}

// Service is the password reset manager.
type Service struct {
	store     Store
	mailer    email.Sender
	hasher    *password.Hasher
	validator *password.Validator
	revoker   SessionRevoker
	ttl       time.Duration
	generate  func() (string, error)
}

// NewService creates a reset manager. A zero ttl uses DefaultTTL.
func NewService(store Store, mailer email.Sender, hasher *password.Hasher, validator *password.Validator, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store:     store,
		mailer:    mailer,
		hasher:    hasher,
		validator: validator,
		ttl:       ttl,
		generate:  GenerateCode,
	}
}

// WithRevoker ends refresh token chains after a successful reset.
func (s *Service) WithRevoker(r SessionRevoker) *Service {
	s.revoker = r
	return s
}

// WithGenerator replaces the code generator.
func (s *Service) WithGenerator(gen func() (string, error)) *Service {
	s.generate = gen
	return s
}

// RequestReset issues a new code for the account with addr and emails it.
// The returned Outcome is for logging only; callers must answer every
// request identically.
func (s *Service) RequestReset(ctx context.Context, addr string) Outcome {
	addr = models.NormalizeEmail(addr)

	user, err := s.store.GetUserByEmail(ctx, addr)
	if errors.Is(err, repository.ErrNotFound) {
		slog.InfoContext(ctx, "reset_requested", "outcome", OutcomeUnknownEmail.String())
		return OutcomeUnknownEmail
	}
	if err != nil {
		slog.ErrorContext(ctx, "reset_request_failed", "error", err)
		return OutcomeStoreFailed
	}
	if !user.IsActive {
		slog.InfoContext(ctx, "reset_requested", "user_id", user.ID, "outcome", OutcomeInactive.String())
		return OutcomeInactive
	}

	code, err := s.issue(ctx, user.ID)
	if err != nil {
		slog.ErrorContext(ctx, "reset_request_failed", "user_id", user.ID, "error", err)
		return OutcomeStoreFailed
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.FullName, code, s.ttl); err != nil {
		slog.ErrorContext(ctx, "reset_dispatch_failed", "user_id", user.ID, "error", err)
		return OutcomeDispatchFailed
	}

	slog.InfoContext(ctx, "reset_requested", "user_id", user.ID, "outcome", OutcomeDispatched.String())
	return OutcomeDispatched
}

func (s *Service) issue(ctx context.Context, userID int64) (string, error) {
	for range maxCodeAttempts {
		code, err := s.generate()
		if err != nil {
			return "", err
		}
		_, err = s.store.ReplaceResetCode(ctx, userID, models.PurposePasswordReset, HashCode(code), s.ttl)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("store reset code: %w", err)
		}
		return code, nil
	}
	return "", errors.New("could not draw an unused reset code")
}

// ConsumeReset sets newPassword for the owner of code and deletes the code.
// Unknown, expired or already used codes fail with INVALID_TOKEN and change
// nothing.
func (s *Service) ConsumeReset(ctx context.Context, code, newPassword string) error {
	code = NormalizeCode(code)
	if !ValidFormat(code) {
		return apperr.InvalidToken()
	}
	if err := s.validator.Check(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}

	userID, err := s.store.ConsumeResetCode(ctx, HashCode(code), models.PurposePasswordReset, hash)
	if errors.Is(err, repository.ErrNotFound) {
		slog.WarnContext(ctx, "reset_failed", "reason", "invalid_or_expired_code")
		return apperr.InvalidToken()
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("consume reset code: %w", err))
	}

	if s.revoker != nil {
		if err := s.revoker.Revoke(ctx, userID); err != nil {
			slog.ErrorContext(ctx, "reset_revoke_failed", "user_id", userID, "error", err)
		}
	}

	slog.InfoContext(ctx, "reset_success", "user_id", userID)
	return nil
}
