// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers implements the JSON HTTP API.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/oliverandrich/talentgate-identity/internal/apperr"
	authsvc "codeberg.org/oliverandrich/talentgate-identity/internal/services/auth"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/reset"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/social"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/token"
	"github.com/labstack/echo/v4"
)

// Pinger reports whether the credential store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	store    Pinger
	accounts *authsvc.Service
	tokens   *token.Service
	resets   *reset.Service
	linker   *social.Linker
}

// New creates a new Handlers instance.
func New(store Pinger, accounts *authsvc.Service, tokens *token.Service, resets *reset.Service, linker *social.Linker) *Handlers {
	return &Handlers{
		store:    store,
		accounts: accounts,
		tokens:   tokens,
		resets:   resets,
		linker:   linker,
	}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.FieldErrors(map[string]string{"id": "must be a positive integer"})
	}
	return id, nil
}
