// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/talentgate-identity/internal/apperr"
	"codeberg.org/oliverandrich/talentgate-identity/internal/auth"
	"codeberg.org/oliverandrich/talentgate-identity/internal/i18n"
	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	authsvc "codeberg.org/oliverandrich/talentgate-identity/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	FullName        string `json:"full_name" validate:"required,max=200"`
	Role            string `json:"role" validate:"omitempty,oneof=CANDIDATE RECRUITER HR candidate recruiter hr"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body of POST /auth/refresh-token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// ChangePasswordRequest is the body of POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"omitempty,eqfield=NewPassword"`
}

// ProfileRequest is the body of PUT /auth/profile.
type ProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,max=200"`
	PhotoURL *string `json:"photo_url" validate:"omitempty,url,max=2048"`
}

// Profile is the current identity as returned by GET /auth/me.
type Profile struct {
	*models.User
	Company *auth.CompanyRef `json:"company,omitempty"`
}

// Register creates a local account.
func (h *Handlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	var role models.Role
	if req.Role != "" {
		role, _ = models.ParseRole(req.Role)
	}

	session, err := h.accounts.Register(c.Request().Context(), authsvc.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     role,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, session)
}

// Login exchanges credentials for a token pair.
func (h *Handlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, session)
}

// Refresh exchanges a refresh token for a new access token.
func (h *Handlers) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	refreshed, err := h.tokens.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, refreshed)
}

// Logout ends the caller's refresh token chain. Access tokens stay valid
// until they expire.
func (h *Handlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.accounts.Logout(ctx, principal(c).ID); err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, i18n.T(ctx, "msg_logged_out"))
}

// Me returns the caller's current profile.
func (h *Handlers) Me(c echo.Context) error {
	p := principal(c)
	user, err := h.accounts.Me(c.Request().Context(), p.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, Profile{User: user, Company: p.Company})
}

// UpdateProfile changes the caller's name or photo.
func (h *Handlers) UpdateProfile(c echo.Context) error {
	var req ProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	p := principal(c)
	user, err := h.accounts.UpdateProfile(c.Request().Context(), p.ID, authsvc.ProfileUpdate{
		FullName: req.FullName,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, Profile{User: user, Company: p.Company})
}

// ChangePassword sets a new password after checking the current one.
func (h *Handlers) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.accounts.ChangePassword(ctx, principal(c).ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, i18n.T(ctx, "msg_password_changed"))
}

// ForgotPassword sends a reset code when the account exists. The response
// never depends on that.
func (h *Handlers) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	h.resets.RequestReset(ctx, req.Email)
	return respondMessage(c, http.StatusOK, i18n.T(ctx, "msg_reset_requested"))
}

// ResetPassword consumes a reset code and sets the new password.
func (h *Handlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.resets.ConsumeReset(ctx, req.Token, req.NewPassword); err != nil {
		if apperr.HasCode(err, apperr.CodeInvalidToken) {
			return apperr.New(apperr.KindValidation, apperr.CodeInvalidToken, "Reset code is invalid or has expired")
		}
		return err
	}
	return respondMessage(c, http.StatusOK, i18n.T(ctx, "msg_password_reset"))
}

// principal returns the identity resolved by RequireAuth.
func principal(c echo.Context) *auth.Principal {
	return auth.GetPrincipal(c.Request().Context())
}
