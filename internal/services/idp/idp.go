// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package idp verifies ID tokens issued by external identity providers.
package idp

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/talentgate-identity/internal/config"
	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
)

// Assertion is a verified identity claim from an external provider.
type Assertion struct {
	UID           string              `json:"uid"`
	Email         string              `json:"email"`
	EmailVerified bool                `json:"email_verified"`
	Provider      models.AuthProvider `json:"provider"`
	DisplayName   string              `json:"display_name,omitempty"`
	PhotoURL      string              `json:"photo_url,omitempty"`
}

// Verifier checks an ID token and returns the identity it asserts.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Assertion, error)
}

// DefaultTimeout bounds a verification when none is configured.
const DefaultTimeout = 5 * time.Second

type timeoutVerifier struct {
	next    Verifier
	timeout time.Duration
}

// WithTimeout gives every verification its own deadline.
func WithTimeout(v Verifier, timeout time.Duration) Verifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &timeoutVerifier{next: v, timeout: timeout}
}

func (t *timeoutVerifier) Verify(ctx context.Context, idToken string) (*Assertion, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Verify(ctx, idToken)
}

// New builds the verifier selected by cfg. It returns nil when no provider
// is configured, which disables social sign-in.
func New(ctx context.Context, cfg config.IdPConfig) (Verifier, error) {
	var (
		v   Verifier
		err error
	)
	switch cfg.Provider {
	case "":
		return nil, nil
	case "firebase":
		v = NewFirebase(ctx, cfg.FirebaseProjectID)
	case "google":
		v, err = NewGoogle(ctx, cfg.GoogleClientID)
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithTimeout(v, cfg.Timeout), nil
}
