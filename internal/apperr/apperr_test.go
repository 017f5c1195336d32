// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"codeberg.org/oliverandrich/talentgate-identity/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		err    *apperr.Error
		status int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.MissingToken(), http.StatusUnauthorized},
		{apperr.TokenExpired(), http.StatusUnauthorized},
		{apperr.AccountDeactivated(), http.StatusUnauthorized},
		{apperr.InsufficientPermissions([]string{"ADMIN"}), http.StatusForbidden},
		{apperr.NotFound("x"), http.StatusNotFound},
		{apperr.EmailExists(), http.StatusConflict},
		{apperr.AccountAlreadyLinked(), http.StatusConflict},
		{apperr.RateLimitExceeded(), http.StatusTooManyRequests},
		{apperr.Internal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status())
		})
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("verify: %w", apperr.TokenExpired())

	assert.ErrorIs(t, wrapped, apperr.TokenExpired())
	assert.NotErrorIs(t, wrapped, apperr.InvalidToken())
	assert.True(t, apperr.HasCode(wrapped, apperr.CodeTokenExpired))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := apperr.InvalidToken().Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dial tcp")
	assert.Equal(t, apperr.CodeInvalidToken, err.Code)
}

func TestInsufficientPermissionsNamesRoles(t *testing.T) {
	err := apperr.InsufficientPermissions([]string{"ADMIN", "HR"})

	assert.Contains(t, err.Message, "ADMIN, HR")
}

func TestFieldErrorsSorted(t *testing.T) {
	err := apperr.FieldErrors(map[string]string{"password": "too short", "email": "invalid"})

	assert.Equal(t, "email: invalid; password: too short", err.Message)
}

func TestAs(t *testing.T) {
	e, ok := apperr.As(fmt.Errorf("x: %w", apperr.LoginFailed()))
	require.True(t, ok)
	assert.Equal(t, apperr.CodeLoginFailed, e.Code)

	_, ok = apperr.As(errors.New("plain"))
	assert.False(t, ok)
}
