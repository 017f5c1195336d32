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
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/idp"
	"github.com/labstack/echo/v4"
)

// IDTokenRequest carries an external provider ID token. Provider is the
// caller's claim of where the token came from and must match the token.
type IDTokenRequest struct {
	IDToken  string `json:"id_token" validate:"required"`
	Provider string `json:"provider"`
}

// SocialSession is the result of a social sign-in.
type SocialSession struct {
	*authsvc.Session
	IsNewUser bool `json:"is_new_user"`
	IsLinked  bool `json:"is_linked"`
}

// VerifiedToken is the assertion behind a verified ID token. LinkedToCaller
// is set only for authenticated callers.
type VerifiedToken struct {
	*idp.Assertion
	LinkedToCaller *bool `json:"linked_to_caller,omitempty"`
}

// VerifyIDToken checks an external ID token and returns its assertion
// without creating or changing any account.
func (h *Handlers) VerifyIDToken(c echo.Context) error {
	var req IDTokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	assertion, err := h.linker.VerifyToken(ctx, req.IDToken, req.Provider)
	if err != nil {
		return err
	}

	out := VerifiedToken{Assertion: assertion}
	if auth.IsAuthenticated(ctx) {
		linked, err := h.linker.LinkedTo(ctx, assertion.UID, principal(c).ID)
		if err != nil {
			return err
		}
		out.LinkedToCaller = &linked
	}
	return respond(c, http.StatusOK, out)
}

// SocialAuth signs in with an external ID token, linking or creating the
// local account.
func (h *Handlers) SocialAuth(c echo.Context) error {
	var req IDTokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	res, err := h.linker.SignIn(ctx, req.IDToken, req.Provider)
	if err != nil {
		return err
	}
	session, err := h.accounts.IssueSession(ctx, res.User)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if res.IsNewUser {
		status = http.StatusCreated
	}
	return respond(c, status, SocialSession{
		Session:   session,
		IsNewUser: res.IsNewUser,
		IsLinked:  res.IsLinked,
	})
}

// LinkAccount binds an external identity to the caller's account.
func (h *Handlers) LinkAccount(c echo.Context) error {
	var req IDTokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.linker.Link(ctx, principal(c).ID, req.IDToken, req.Provider)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: user, Message: i18n.T(ctx, "msg_account_linked")})
}

// UnlinkAccount removes the external identity of account :id. Callers may
// unlink themselves; admins may unlink anyone.
func (h *Handlers) UnlinkAccount(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p := principal(c)
	if p.ID != id && !p.HasRole(models.RoleAdmin) {
		return apperr.InsufficientPermissions([]string{string(models.RoleAdmin)})
	}

	ctx := c.Request().Context()
	user, err := h.linker.Unlink(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: user, Message: i18n.T(ctx, "msg_account_unlinked")})
}
