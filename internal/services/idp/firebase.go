// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package idp

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	firebaseIssuerPrefix = "https://securetoken.google.com/"
	firebaseJWKSURL      = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
)

// Firebase verifies Firebase Authentication ID tokens.
type Firebase struct {
	verifier *oidc.IDTokenVerifier
}

// NewFirebase verifies tokens for projectID against Google's published keys.
func NewFirebase(ctx context.Context, projectID string) *Firebase {
	return NewFirebaseWithKeySet(projectID, oidc.NewRemoteKeySet(ctx, firebaseJWKSURL))
}

// NewFirebaseWithKeySet verifies tokens for projectID against keys.
func NewFirebaseWithKeySet(projectID string, keys oidc.KeySet) *Firebase {
	verifier := oidc.NewVerifier(firebaseIssuerPrefix+projectID, keys, &oidc.Config{
		ClientID: projectID,
	})
	return &Firebase{verifier: verifier}
}

type firebaseClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Firebase      struct {
		SignInProvider string `json:"sign_in_provider"`
	} `json:"firebase"`
}

// Verify checks signature, issuer, audience and expiry of a Firebase ID token.
func (f *Firebase) Verify(ctx context.Context, rawIDToken string) (*Assertion, error) {
	idToken, err := f.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("firebase id_token verification failed: %w", err)
	}

	var claims firebaseClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("firebase id_token claims parse failed: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("firebase id_token missing subject")
	}

	provider, ok := models.ParseAuthProvider(claims.Firebase.SignInProvider)
	if !ok {
		return nil, fmt.Errorf("unsupported sign-in provider %q", claims.Firebase.SignInProvider)
	}

	return &Assertion{
		UID:           claims.Subject,
		Email:         models.NormalizeEmail(claims.Email),
		EmailVerified: claims.EmailVerified,
		Provider:      provider,
		DisplayName:   claims.Name,
		PhotoURL:      claims.Picture,
	}, nil
}
