// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package idp

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// ErrInvalidGoogleAudience is returned for tokens minted for another client.
var ErrInvalidGoogleAudience = errors.New("invalid google audience")

// Google verifies Google Sign-In ID tokens through the tokeninfo endpoint.
type Google struct {
	service  *oauth2.Service
	clientID string
}

// NewGoogle creates a verifier accepting tokens issued to clientID.
func NewGoogle(ctx context.Context, clientID string, opts ...option.ClientOption) (*Google, error) {
	if clientID == "" {
		return nil, errors.New("google client id is required")
	}
	if len(opts) == 0 {
		opts = []option.ClientOption{option.WithoutAuthentication()}
	}
	service, err := oauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init google oauth2 service: %w", err)
	}
	return &Google{service: service, clientID: clientID}, nil
}

// Verify asks Google to validate the token and checks its audience.
func (g *Google) Verify(ctx context.Context, rawIDToken string) (*Assertion, error) {
	info, err := g.service.Tokeninfo().IdToken(rawIDToken).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google tokeninfo failed: %w", err)
	}

	if info.Audience != g.clientID {
		return nil, ErrInvalidGoogleAudience
	}
	if info.UserId == "" {
		return nil, errors.New("google tokeninfo missing user id")
	}

	return &Assertion{
		UID:           info.UserId,
		Email:         models.NormalizeEmail(info.Email),
		EmailVerified: info.VerifiedEmail,
		Provider:      models.ProviderGoogle,
	}, nil
}
