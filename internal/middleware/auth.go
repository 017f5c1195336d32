// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware holds the echo middlewares of the identity API.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codeberg.org/oliverandrich/talentgate-identity/internal/apperr"
	"codeberg.org/oliverandrich/talentgate-identity/internal/auth"
	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"codeberg.org/oliverandrich/talentgate-identity/internal/repository"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/token"
	"github.com/labstack/echo/v4"
)

// TokenVerifier checks a signed token of the expected type.
type TokenVerifier interface {
	Verify(tokenString string, expected token.Type) (*token.Claims, error)
}

// IdentityLoader is the credential store lookup behind every authenticated request
type IdentityLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetCompanyByRecruiter(ctx context.Context, recruiterID int64) (*models.Company, error)
}

// Authenticator resolves bearer tokens to principals.
type Authenticator struct {
	tokens TokenVerifier
	store  IdentityLoader
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens TokenVerifier, store IdentityLoader) *Authenticator {
	return &Authenticator{tokens: tokens, store: store}
}

// Authenticate verifies the bearer token of authorization and then reads
// the identity from the store. Role and status come from the store, never
// from the token.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (*auth.Principal, error) {
	raw, ok := bearerToken(authorization)
	if !ok {
		return nil, apperr.MissingToken()
	}

	claims, err := a.tokens.Verify(raw, token.TypeAccess)
	if err != nil {
		return nil, err
	}

	user, err := a.store.GetUserByID(ctx, claims.IdentityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.InvalidToken()
		}
		return nil, apperr.Internal(fmt.Errorf("load identity: %w", err))
	}
	if !user.IsActive {
		return nil, apperr.AccountDeactivated()
	}

	p := auth.NewPrincipal(user)
	if user.Role == models.RoleRecruiter {
		company, err := a.store.GetCompanyByRecruiter(ctx, user.ID)
		switch {
		case err == nil:
			p.Company = &auth.CompanyRef{ID: company.ID, Name: company.Name}
		case !errors.Is(err, repository.ErrNotFound):
			return nil, apperr.Internal(fmt.Errorf("load company: %w", err))
		}
	}
	return p, nil
}

// RequireAuth rejects requests without a valid access token.
func (a *Authenticator) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			p, err := a.Authenticate(req.Context(), req.Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}
			c.SetRequest(req.WithContext(auth.WithPrincipal(req.Context(), p)))
			return next(c)
		}
	}
}

// OptionalAuth resolves the principal when it can and otherwise continues
// anonymously.
func (a *Authenticator) OptionalAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if p, err := a.Authenticate(req.Context(), req.Header.Get(echo.HeaderAuthorization)); err == nil {
				c.SetRequest(req.WithContext(auth.WithPrincipal(req.Context(), p)))
			}
			return next(c)
		}
	}
}

// RequireRole admits principals holding one of roles. It must run after
// RequireAuth and never reads the store.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := auth.GetPrincipal(c.Request().Context())
			if p == nil {
				return apperr.MissingToken()
			}
			if !p.HasRole(roles...) {
				return apperr.InsufficientPermissions(names)
			}
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
