// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package social binds identities asserted by an external provider to
// local accounts.
package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"codeberg.org/oliverandrich/talentgate-identity/internal/apperr"
	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"codeberg.org/oliverandrich/talentgate-identity/internal/repository"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/idp"
)

// ErrNoProvider is returned when no identity provider is configured.
var ErrNoProvider = errors.New("no identity provider configured")

// Store is the slice of the credential store the linker needs.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByExternalUID(ctx context.Context, uid string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, id int64, upd repository.UserUpdate) error
	LinkExternalIdentity(ctx context.Context, id int64, uid string, provider models.AuthProvider) error
	UnlinkExternalIdentity(ctx context.Context, id int64) error
	TouchLastLogin(ctx context.Context, id int64) error
}

// Result is the identity a sign-in resolved to.
type Result struct {
	User      *models.User
	Outcome   Outcome
	IsNewUser bool
	IsLinked  bool
}

// Linker is the social identity linker.
type Linker struct {
	store    Store
	verifier idp.Verifier
}

// NewLinker creates a linker. A nil verifier disables every provider flow.
func NewLinker(store Store, verifier idp.Verifier) *Linker {
	return &Linker{store: store, verifier: verifier}
}

// VerifyToken checks idToken and returns its assertion without touching
// the store.
func (l *Linker) VerifyToken(ctx context.Context, idToken, declaredProvider string) (*idp.Assertion, error) {
	if l.verifier == nil {
		return nil, apperr.FirebaseToken(ErrNoProvider)
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, apperr.Validation("id_token is required")
	}

	a, err := l.verifier.Verify(ctx, idToken)
	if err != nil {
		slog.WarnContext(ctx, "idp_verify_failed", "error", err)
		return nil, apperr.FirebaseToken(err)
	}
	if err := checkProvider(declaredProvider, a.Provider); err != nil {
		return nil, err
	}
	return a, nil
}

// SignIn resolves the asserted identity to a local account, linking by
// email or creating a new account as needed.
func (l *Linker) SignIn(ctx context.Context, idToken, declaredProvider string) (*Result, error) {
	a, err := l.VerifyToken(ctx, idToken, declaredProvider)
	if err != nil {
		return nil, err
	}

	res, err := l.signIn(ctx, a)
	if errors.Is(err, repository.ErrDuplicate) || errors.Is(err, repository.ErrAlreadyLinked) {
		// A concurrent first sign-in won the insert or link; decide again.
		res, err = l.signIn(ctx, a)
	}
	if err != nil {
		return nil, mapStoreError(err)
	}

	if err := l.store.TouchLastLogin(ctx, res.User.ID); err != nil {
		slog.WarnContext(ctx, "touch_last_login_failed", "user_id", res.User.ID, "error", err)
	}
	slog.InfoContext(ctx, "social_sign_in",
		"user_id", res.User.ID, "provider", string(a.Provider), "outcome", res.Outcome.String())
	return res, nil
}

func (l *Linker) signIn(ctx context.Context, a *idp.Assertion) (*Result, error) {
	byUID, err := l.lookupUID(ctx, a.UID)
	if err != nil {
		return nil, err
	}
	var byEmail *models.User
	if byUID == nil && a.Email != "" {
		if byEmail, err = l.lookupEmail(ctx, a.Email); err != nil {
			return nil, err
		}
	}

	d := Decide(byUID, byEmail, nil)
	if d.User != nil && !d.User.IsActive {
		return nil, apperr.AccountDeactivated()
	}

	switch d.Outcome {
	case MatchedByExternalID:
		user, err := l.reconcile(ctx, d.User, a)
		if err != nil {
			return nil, err
		}
		return &Result{User: user, Outcome: d.Outcome}, nil

	case MatchedByEmail:
		if !a.EmailVerified {
			return nil, apperr.EmailNotVerified()
		}
		if err := l.store.LinkExternalIdentity(ctx, d.User.ID, a.UID, a.Provider); err != nil {
			return nil, err
		}
		user, err := l.reconcile(ctx, d.User, a)
		if err != nil {
			return nil, err
		}
		return &Result{User: user, Outcome: d.Outcome, IsLinked: true}, nil

	case NoMatch:
		user, err := l.create(ctx, a)
		if err != nil {
			return nil, err
		}
		return &Result{User: user, Outcome: d.Outcome, IsNewUser: true}, nil
	}
	return nil, apperr.AccountAlreadyLinked()
}

// Link binds the asserted external identity to the account userID.
func (l *Linker) Link(ctx context.Context, userID int64, idToken, declaredProvider string) (*models.User, error) {
	a, err := l.VerifyToken(ctx, idToken, declaredProvider)
	if err != nil {
		return nil, err
	}

	target, err := l.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	byUID, err := l.lookupUID(ctx, a.UID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	d := Decide(byUID, nil, target)
	switch d.Outcome {
	case Conflict:
		slog.WarnContext(ctx, "link_conflict", "user_id", userID, "provider", string(a.Provider))
		return nil, apperr.AccountAlreadyLinked()
	case MatchedByExternalID:
		return target, nil
	}

	if err := l.store.LinkExternalIdentity(ctx, target.ID, a.UID, a.Provider); err != nil {
		return nil, mapStoreError(err)
	}
	slog.InfoContext(ctx, "account_linked", "user_id", userID, "provider", string(a.Provider))

	// The link is committed; a failed profile sync must not report failure.
	user, err := l.reconcile(ctx, target, a)
	if err != nil {
		slog.WarnContext(ctx, "link_reconcile_failed", "user_id", userID, "error", err)
		if user, err = l.store.GetUserByID(ctx, userID); err != nil {
			return nil, mapStoreError(err)
		}
	}
	return user, nil
}

// LinkedTo reports whether the external uid is bound to userID.
func (l *Linker) LinkedTo(ctx context.Context, uid string, userID int64) (bool, error) {
	user, err := l.lookupUID(ctx, uid)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return user != nil && user.ID == userID, nil
}

// Unlink clears the external identity of userID. Accounts without a local
// password cannot unlink, they would have no way left to sign in.
func (l *Linker) Unlink(ctx context.Context, userID int64) (*models.User, error) {
	user, err := l.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if !user.IsLinked() {
		return nil, apperr.FirebaseNotLinked()
	}
	if !user.HasPassword() {
		return nil, apperr.PasswordRequired()
	}

	if err := l.store.UnlinkExternalIdentity(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.FirebaseNotLinked()
		}
		return nil, apperr.Internal(err)
	}
	slog.InfoContext(ctx, "account_unlinked", "user_id", userID)

	user, err = l.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return user, nil
}

func (l *Linker) reconcile(ctx context.Context, user *models.User, a *idp.Assertion) (*models.User, error) {
	var upd repository.UserUpdate
	changed := false
	if a.EmailVerified && !user.EmailVerified {
		verified := true
		upd.EmailVerified = &verified
		changed = true
	}
	if name := strings.TrimSpace(a.DisplayName); name != "" && name != user.FullName {
		upd.FullName = &name
		changed = true
	}
	if a.PhotoURL != "" && (user.PhotoURL == nil || *user.PhotoURL != a.PhotoURL) {
		photo := a.PhotoURL
		upd.PhotoURL = &photo
		changed = true
	}
	if changed {
		if err := l.store.UpdateUser(ctx, user.ID, upd); err != nil {
			return nil, err
		}
	}
	return l.store.GetUserByID(ctx, user.ID)
}

func (l *Linker) create(ctx context.Context, a *idp.Assertion) (*models.User, error) {
	if a.Email == "" {
		return nil, apperr.Validation("The provider did not supply an email address")
	}

	uid := a.UID
	provider := a.Provider
	user := &models.User{
		Email:         a.Email,
		FullName:      fullName(a),
		Role:          models.RoleCandidate,
		IsActive:      true,
		ExternalUID:   &uid,
		AuthProvider:  &provider,
		EmailVerified: a.EmailVerified,
	}
	if a.PhotoURL != "" {
		photo := a.PhotoURL
		user.PhotoURL = &photo
	}
	if err := l.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (l *Linker) lookupUID(ctx context.Context, uid string) (*models.User, error) {
	user, err := l.store.GetUserByExternalUID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

func (l *Linker) lookupEmail(ctx context.Context, addr string) (*models.User, error) {
	user, err := l.store.GetUserByEmail(ctx, addr)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

func checkProvider(declared string, asserted models.AuthProvider) error {
	if strings.TrimSpace(declared) == "" {
		return nil
	}
	p, ok := models.ParseAuthProvider(declared)
	if !ok || p != asserted {
		return apperr.ProviderMismatch()
	}
	return nil
}

func fullName(a *idp.Assertion) string {
	if name := strings.TrimSpace(a.DisplayName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(a.Email, "@")
	return local
}

func mapStoreError(err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("Account not found")
	case errors.Is(err, repository.ErrAlreadyLinked), errors.Is(err, repository.ErrDuplicate):
		return apperr.AccountAlreadyLinked()
	}
	return apperr.Internal(fmt.Errorf("social link: %w", err))
}
