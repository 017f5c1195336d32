// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth provides authentication context helpers.
package auth

import (
	"context"
	"slices"

	"codeberg.org/oliverandrich/talentgate-identity/internal/ctxkeys"
	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
)

// CompanyRef is a recruiter's current company association.
type CompanyRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Principal is the identity resolved for the current request, read fresh
// from the credential store.
type Principal struct { //nolint:govet // fieldalignment: readability over optimization
	ID            int64       `json:"id"`
	Email         string      `json:"email"`
	FullName      string      `json:"full_name"`
	Role          models.Role `json:"role"`
	EmailVerified bool        `json:"email_verified"`
	Company       *CompanyRef `json:"company,omitempty"`
}

// NewPrincipal builds a principal from a stored identity.
func NewPrincipal(user *models.User) *Principal {
	return &Principal{
		ID:            user.ID,
		Email:         user.Email,
		FullName:      user.FullName,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
	}
}

// HasRole reports whether the principal holds one of roles.
func (p *Principal) HasRole(roles ...models.Role) bool {
	return p != nil && slices.Contains(roles, p.Role)
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxkeys.Principal{}, p)
}

// GetPrincipal returns the authenticated identity from the context, or nil if not authenticated.
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(ctxkeys.Principal{}).(*Principal); ok {
		return p
	}
	return nil
}

// IsAuthenticated returns true if the context has an authenticated identity.
func IsAuthenticated(ctx context.Context) bool {
	return GetPrincipal(ctx) != nil
}
