// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/talentgate-identity/internal/apperr"
	"codeberg.org/oliverandrich/talentgate-identity/internal/auth"
	"github.com/labstack/echo/v4"
)

// ErrorBody is the error member of a failure response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope wraps every API response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Success: true, Message: message})
}

// ErrorHandler is the echo HTTPErrorHandler. It is the only place errors
// are turned into responses; internal causes are logged, never sent.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	appErr := toAppError(err)
	if appErr.Kind == apperr.KindInternal {
		attrs := []any{
			"method", c.Request().Method,
			"route", c.Path(),
			"error", err,
		}
		if p := auth.GetPrincipal(c.Request().Context()); p != nil {
			attrs = append(attrs, "identity_id", p.ID)
		}
		slog.ErrorContext(c.Request().Context(), "internal_error", attrs...)
	}

	body := Envelope{Error: &ErrorBody{Code: appErr.Code, Message: appErr.Message}}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(appErr.Status())
	} else {
		err = c.JSON(appErr.Status(), body)
	}
	if err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}

func toAppError(err error) *apperr.Error {
	if appErr, ok := apperr.As(err); ok {
		return appErr
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return apperr.Internal(err)
	}
	switch he.Code {
	case http.StatusNotFound:
		return apperr.NotFound("Resource not found")
	case http.StatusMethodNotAllowed:
		return apperr.New(apperr.KindNotFound, apperr.CodeNotFound, "Method not allowed")
	case http.StatusRequestEntityTooLarge:
		return apperr.Validation("Request body too large")
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return apperr.Validation("Invalid request")
	case http.StatusUnauthorized:
		return apperr.MissingToken()
	case http.StatusTooManyRequests:
		return apperr.RateLimitExceeded()
	}
	return apperr.Internal(err)
}
