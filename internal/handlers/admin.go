// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"github.com/labstack/echo/v4"
)

// RoleRequest is the body of PATCH /admin/users/:id/role.
type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=CANDIDATE RECRUITER HR ADMIN"`
}

// StatusRequest is the body of PATCH /admin/users/:id/status.
type StatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// GetUser returns any account by id.
func (h *Handlers) GetUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	user, err := h.accounts.Me(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user)
}

// SetRole changes the role of account :id. It applies from the next request on.
func (h *Handlers) SetRole(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req RoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.accounts.SetRole(c.Request().Context(), id, models.Role(req.Role))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user)
}

// SetStatus activates or deactivates account :id.
func (h *Handlers) SetStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.accounts.SetActive(c.Request().Context(), id, *req.IsActive)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user)
}
