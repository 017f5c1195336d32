// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"codeberg.org/oliverandrich/talentgate-identity/internal/database"
	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"codeberg.org/oliverandrich/talentgate-identity/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plaintext password of users created by NewTestUser.
const TestPassword = "Str0ng!Pass1"

// NewTestDB creates a migrated SQLite database in a temporary directory.
// A file database lets transactions run on separate connections.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// UserOption customizes a user created by NewTestUser.
type UserOption func(*models.User)

// WithRole sets the role of the test user.
func WithRole(role models.Role) UserOption {
	return func(u *models.User) { u.Role = role }
}

// Inactive creates the test user deactivated.
func Inactive() UserOption {
	return func(u *models.User) { u.IsActive = false }
}

// WithExternalUID links the test user to an external identity.
func WithExternalUID(uid string, provider models.AuthProvider) UserOption {
	return func(u *models.User) {
		u.ExternalUID = &uid
		u.AuthProvider = &provider
	}
}

// WithoutPassword creates a social-only test user.
func WithoutPassword() UserOption {
	return func(u *models.User) { u.PasswordHash = nil }
}

// NewTestUser creates an active CANDIDATE with TestPassword in the database.
func NewTestUser(t *testing.T, repo *repository.Repository, email string, opts ...UserOption) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)
	hashStr := string(hash)
	local := models.ProviderLocal

	user := &models.User{
		Email:        email,
		PasswordHash: &hashStr,
		FullName:     "Test User",
		Role:         models.RoleCandidate,
		IsActive:     true,
		AuthProvider: &local,
	}
	for _, opt := range opts {
		opt(user)
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// NewTestCompany associates a company with a recruiter.
func NewTestCompany(t *testing.T, repo *repository.Repository, name string, recruiterID int64) *models.Company {
	t.Helper()
	company := &models.Company{Name: name, RecruiterID: &recruiterID}
	require.NoError(t, repo.CreateCompany(context.Background(), company))
	return company
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates a JSON HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// BearerRequest creates a JSON HTTP request carrying an access token.
func BearerRequest(method, path string, body io.Reader, token string) *http.Request {
	req := NewRequest(method, path, body)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return req
}
