// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"codeberg.org/oliverandrich/talentgate-identity/internal/ratelimit"
	"codeberg.org/oliverandrich/talentgate-identity/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndToEnd_RegisterLoginMe(t *testing.T) {
	a := newApp(t)

	registered := a.register(t, "alice@example.com")
	assert.Equal(t, "alice@example.com", registered.User.Email)
	assert.Equal(t, "CANDIDATE", registered.User.Role)
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)
	assert.Equal(t, int64(3600), registered.ExpiresIn)

	rec := a.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "Wr0ng!Pass",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "LOGIN_FAILED", errorCode(t, rec))

	rec = a.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": testutil.TestPassword,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var login sessionData
	decodeData(t, rec, &login)
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEqual(t, registered.RefreshToken, login.RefreshToken)

	rec = a.do(t, http.MethodGet, "/auth/me", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	decodeData(t, rec, &me)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Equal(t, registered.User.ID, me.ID)
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	a := newApp(t)
	a.register(t, "alice@example.com")

	rec := a.do(t, http.MethodPost, "/auth/register", registerBody("Alice@Example.com"), "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMAIL_EXISTS", errorCode(t, rec))
	count, err := testutil.CountUsers(context.Background(), a.repo)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRegister_Validation(t *testing.T) {
	a := newApp(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"mismatched confirmation", map[string]any{
			"email": "a@example.com", "password": testutil.TestPassword,
			"confirmPassword": "Other!Pass1", "full_name": "A",
		}},
		{"invalid email", map[string]any{
			"email": "nope", "password": testutil.TestPassword,
			"confirmPassword": testutil.TestPassword, "full_name": "A",
		}},
		{"weak password", map[string]any{
			"email": "a@example.com", "password": "password",
			"confirmPassword": "password", "full_name": "A",
		}},
		{"admin role", map[string]any{
			"email": "a@example.com", "password": testutil.TestPassword,
			"confirmPassword": testutil.TestPassword, "full_name": "A", "role": "ADMIN",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/auth/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
		})
	}
}

func TestRegister_MalformedBody(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/auth/register", "not an object", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestRefreshToken(t *testing.T) {
	a := newApp(t)
	s := a.register(t, "alice@example.com")

	rec := a.do(t, http.MethodPost, "/auth/refresh-token", map[string]string{"refresh_token": s.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed sessionData
	decodeData(t, rec, &refreshed)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, "Bearer", refreshed.TokenType)
	assert.NotEmpty(t, refreshed.RefreshToken)

	// The spent refresh token is rejected and ends the chain.
	rec = a.do(t, http.MethodPost, "/auth/refresh-token", map[string]string{"refresh_token": s.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))

	rec = a.do(t, http.MethodPost, "/auth/refresh-token", map[string]string{"refresh_token": refreshed.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshToken_WrongType(t *testing.T) {
	a := newApp(t)
	s := a.register(t, "alice@example.com")

	rec := a.do(t, http.MethodPost, "/auth/refresh-token", map[string]string{"refresh_token": s.AccessToken}, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, []string{"INVALID_TOKEN", "WRONG_TOKEN_TYPE"}, errorCode(t, rec))
}

func TestRefreshToken_Deactivated(t *testing.T) {
	a := newApp(t)
	s := a.register(t, "alice@example.com")
	require.NoError(t, a.repo.SetUserActive(context.Background(), s.User.ID, false))

	rec := a.do(t, http.MethodPost, "/auth/refresh-token", map[string]string{"refresh_token": s.RefreshToken}, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "ACCOUNT_DEACTIVATED", errorCode(t, rec))
}

func TestMe_RequiresToken(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/auth/me", nil, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "MISSING_TOKEN", errorCode(t, rec))
}

func TestMe_DeactivatedMidSession(t *testing.T) {
	a := newApp(t)
	s := a.register(t, "alice@example.com")
	require.NoError(t, a.repo.SetUserActive(context.Background(), s.User.ID, false))

	rec := a.do(t, http.MethodGet, "/auth/me", nil, s.AccessToken)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "ACCOUNT_DEACTIVATED", errorCode(t, rec))
}

func TestMe_RecruiterCompany(t *testing.T) {
	a := newApp(t)
	body := registerBody("rec@example.com")
	body["role"] = "RECRUITER"
	rec := a.do(t, http.MethodPost, "/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var s sessionData
	decodeData(t, rec, &s)
	testutil.NewTestCompany(t, a.repo, "Acme", s.User.ID)

	rec = a.do(t, http.MethodGet, "/api/v1/auth/me", nil, s.AccessToken)

	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		Role    string `json:"role"`
		Company struct {
			Name string `json:"name"`
		} `json:"company"`
	}
	decodeData(t, rec, &me)
	assert.Equal(t, "RECRUITER", me.Role)
	assert.Equal(t, "Acme", me.Company.Name)
}

func TestLogout(t *testing.T) {
	a := newApp(t)
	s := a.register(t, "alice@example.com")

	rec := a.do(t, http.MethodPost, "/auth/logout", nil, s.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec).Message)

	rec = a.do(t, http.MethodPost, "/auth/refresh-token", map[string]string{"refresh_token": s.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForgotPassword_IdenticalResponses(t *testing.T) {
	a := newApp(t)
	a.register(t, "alice@example.com")

	known := a.do(t, http.MethodPost, "/auth/forgot-password", map[string]string{"email": "alice@example.com"}, "")
	unknown := a.do(t, http.MethodPost, "/auth/forgot-password", map[string]string{"email": "nobody@example.com"}, "")

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Code, unknown.Code)
	assert.Equal(t, known.Body.Bytes(), unknown.Body.Bytes())

	_, sent := a.mailer.code("alice@example.com")
	assert.True(t, sent)
	_, sent = a.mailer.code("nobody@example.com")
	assert.False(t, sent)

	var rows int
	require.NoError(t, a.repo.DB().Get(&rows, `SELECT COUNT(*) FROM reset_codes`))
	assert.Equal(t, 1, rows)
}

func TestResetPassword(t *testing.T) {
	a := newApp(t)
	a.register(t, "alice@example.com")
	a.do(t, http.MethodPost, "/auth/forgot-password", map[string]string{"email": "alice@example.com"}, "")
	code, ok := a.mailer.code("alice@example.com")
	require.True(t, ok)

	body := map[string]string{
		"token":            code,
		"new_password":     "N3w!Secret99",
		"confirm_password": "N3w!Secret99",
	}
	rec := a.do(t, http.MethodPost, "/auth/reset-password", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "alice@example.com", "password": "N3w!Secret99",
	}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Single use.
	body["new_password"] = "An0ther!Secret"
	body["confirm_password"] = "An0ther!Secret"
	rec = a.do(t, http.MethodPost, "/auth/reset-password", body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))

	rec = a.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "alice@example.com", "password": "N3w!Secret99",
	}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResetPassword_UnknownCode(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/auth/reset-password", map[string]string{
		"token": "123456", "new_password": "N3w!Secret99", "confirm_password": "N3w!Secret99",
	}, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))
}

func TestChangePasswordAndProfile(t *testing.T) {
	a := newApp(t)
	s := a.register(t, "alice@example.com")

	rec := a.do(t, http.MethodPut, "/auth/profile", map[string]string{"full_name": "Alice Renamed"}, s.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Alice Renamed")

	rec = a.do(t, http.MethodPost, "/auth/change-password", map[string]string{
		"current_password": testutil.TestPassword,
		"new_password":     "N3w!Secret99",
	}, s.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "alice@example.com", "password": "N3w!Secret99",
	}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	a := newApp(t, withLimiter(ratelimit.NewMemoryStore(5, 15*time.Minute)))
	creds := map[string]string{"email": "nobody@example.com", "password": "whatever"}

	for range 5 {
		rec := a.do(t, http.MethodPost, "/auth/login", creds, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := a.do(t, http.MethodPost, "/auth/login", creds, "")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, rec))

	rec = a.do(t, http.MethodPost, "/auth/register", registerBody("alice@example.com"), "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	count, err := testutil.CountUsers(context.Background(), a.repo)
	require.NoError(t, err)
	assert.Zero(t, count, "rejected requests have no side effects")
}

func TestRoutesUnderAPIPrefix(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/api/v1/auth/register", registerBody("alice@example.com"), "")

	assert.Equal(t, http.StatusCreated, rec.Code)
	user, err := a.repo.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCandidate, user.Role)
}
