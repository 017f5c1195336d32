// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package token_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"codeberg.org/oliverandrich/talentgate-identity/internal/apperr"
	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"codeberg.org/oliverandrich/talentgate-identity/internal/repository"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/token"
	"codeberg.org/oliverandrich/talentgate-identity/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() token.Config {
	return token.Config{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "talentgate",
		Audience:      "talentgate-api",
	}
}

func newService(t *testing.T, cfg token.Config) (*token.Service, *repository.Repository) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	svc, err := token.NewService(cfg, repo)
	require.NoError(t, err)
	return svc, repo
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*token.Config)
	}{
		{"empty access secret", func(c *token.Config) { c.AccessSecret = "" }},
		{"empty refresh secret", func(c *token.Config) { c.RefreshSecret = "" }},
		{"identical secrets", func(c *token.Config) { c.RefreshSecret = c.AccessSecret }},
		{"zero ttl", func(c *token.Config) { c.AccessTTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			_, err := token.NewService(cfg, nil)

			assert.Error(t, err)
		})
	}
}

func TestIssuePair_VerifyRoundTrip(t *testing.T) {
	svc, repo := newService(t, testConfig())
	user := testutil.NewTestUser(t, repo, "alice@example.com", testutil.WithRole(models.RoleHR))

	pair, err := svc.IssuePair(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), pair.ExpiresIn)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := svc.Verify(pair.AccessToken, token.TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.IdentityID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, models.RoleHR, claims.Role)
	assert.Equal(t, user.FullName, claims.FullName)
	assert.Equal(t, token.TypeAccess, claims.Type)
	assert.Equal(t, strconv.FormatInt(user.ID, 10), claims.Subject)
	assert.NotEmpty(t, claims.ID)

	refreshClaims, err := svc.Verify(pair.RefreshToken, token.TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, token.TypeRefresh, refreshClaims.Type)
	assert.True(t, refreshClaims.ExpiresAt.After(claims.ExpiresAt.Time))
}

func TestVerify_RefreshTokenAsAccess(t *testing.T) {
	svc, repo := newService(t, testConfig())
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	pair, err := svc.IssuePair(context.Background(), user)
	require.NoError(t, err)

	_, err = svc.Verify(pair.RefreshToken, token.TypeAccess)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidToken) || apperr.HasCode(err, apperr.CodeWrongTokenType))

	_, err = svc.Verify(pair.AccessToken, token.TypeRefresh)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidToken) || apperr.HasCode(err, apperr.CodeWrongTokenType))
}

func TestVerify_WrongTypeWithValidSignature(t *testing.T) {
	cfg := testConfig()
	svc, _ := newService(t, cfg)

	now := time.Now()
	forged := token.Claims{
		IdentityID: 1,
		Type:       token.TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, forged).SignedString([]byte(cfg.AccessSecret))
	require.NoError(t, err)

	_, err = svc.Verify(signed, token.TypeAccess)

	assert.ErrorIs(t, err, apperr.WrongTokenType())
}

func TestVerify_Expired(t *testing.T) {
	svc, repo := newService(t, testConfig())
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	past := svc.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	pair, err := past.IssuePair(context.Background(), user)
	require.NoError(t, err)

	_, err = svc.Verify(pair.AccessToken, token.TypeAccess)

	assert.ErrorIs(t, err, apperr.TokenExpired())
}

func TestVerify_Malformed(t *testing.T) {
	svc, _ := newService(t, testConfig())

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.Verify(raw, token.TypeAccess)
		assert.ErrorIs(t, err, apperr.InvalidToken(), raw)
	}
}

func TestVerify_BadSignature(t *testing.T) {
	svc, repo := newService(t, testConfig())
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	other := testConfig()
	other.AccessSecret = "someone-else"
	otherSvc, err := token.NewService(other, repo)
	require.NoError(t, err)
	pair, err := otherSvc.IssuePair(context.Background(), user)
	require.NoError(t, err)

	_, err = svc.Verify(pair.AccessToken, token.TypeAccess)

	assert.ErrorIs(t, err, apperr.InvalidToken())
}

func TestVerify_WrongAudience(t *testing.T) {
	svc, repo := newService(t, testConfig())
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	other := testConfig()
	other.Audience = "other-api"
	otherSvc, err := token.NewService(other, repo)
	require.NoError(t, err)
	pair, err := otherSvc.IssuePair(context.Background(), user)
	require.NoError(t, err)

	_, err = svc.Verify(pair.AccessToken, token.TypeAccess)

	assert.ErrorIs(t, err, apperr.InvalidToken())
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	svc, _ := newService(t, testConfig())

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"identity_id": 1, "sub": "1", "type": "access",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(unsigned, token.TypeAccess)

	assert.ErrorIs(t, err, apperr.InvalidToken())
}

func TestRefresh_ReReadsIdentity(t *testing.T) {
	svc, repo := newService(t, testConfig())
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	pair, err := svc.IssuePair(ctx, user)
	require.NoError(t, err)
	require.NoError(t, repo.SetUserRole(ctx, user.ID, models.RoleRecruiter))

	out, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", out.TokenType)
	assert.Equal(t, int64(3600), out.ExpiresIn)
	assert.Empty(t, out.RefreshToken)

	claims, err := svc.Verify(out.AccessToken, token.TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRecruiter, claims.Role)
}

func TestRefresh_Deactivated(t *testing.T) {
	svc, repo := newService(t, testConfig())
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	pair, err := svc.IssuePair(ctx, user)
	require.NoError(t, err)
	require.NoError(t, repo.SetUserActive(ctx, user.ID, false))

	_, err = svc.Refresh(ctx, pair.RefreshToken)

	assert.ErrorIs(t, err, apperr.AccountDeactivated())
}

func TestRefresh_UnknownIdentity(t *testing.T) {
	svc, _ := newService(t, testConfig())

	ghost := &models.User{ID: 4242, Email: "ghost@example.com", Role: models.RoleCandidate}
	pair, err := svc.IssuePair(context.Background(), ghost)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)

	assert.ErrorIs(t, err, apperr.InvalidToken())
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, repo := newService(t, testConfig())
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	pair, err := svc.IssuePair(context.Background(), user)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), pair.AccessToken)

	assert.Error(t, err)
}

func TestRefresh_RotationSingleUse(t *testing.T) {
	cfg := testConfig()
	cfg.RotateRefresh = true
	svc, repo := newService(t, cfg)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	pair, err := svc.IssuePair(ctx, user)
	require.NoError(t, err)

	first, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, first.RefreshToken)

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, second.RefreshToken)

	// Replaying a spent token revokes the chain, including the newest token.
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, apperr.InvalidToken())

	_, err = svc.Refresh(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, apperr.InvalidToken())
}

func TestRevoke(t *testing.T) {
	cfg := testConfig()
	cfg.RotateRefresh = true
	svc, repo := newService(t, cfg)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	pair, err := svc.IssuePair(ctx, user)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, user.ID))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.InvalidToken())
}
