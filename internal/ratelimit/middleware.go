// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/talentgate-identity/internal/apperr"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// storeTimeout bounds a single counter update.
const storeTimeout = 500 * time.Millisecond

// echoStore adapts Store to echo's RateLimiterStore. Store failures let the
// request through.
type echoStore struct {
	store Store
}

func (s echoStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	allowed, err := s.store.Allow(ctx, identifier)
	if err != nil {
		slog.Warn("ratelimit_store_failed", "key", identifier, "error", err)
		return true, nil
	}
	if !allowed {
		slog.Warn("ratelimit_exceeded", "key", identifier)
	}
	return allowed, nil
}

// Middleware limits requests per client IP under the given scope. A nil
// store disables limiting.
func Middleware(store Store, scope string) echo.MiddlewareFunc {
	if store == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: echoStore{store: store},
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return scope + ":" + c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperr.Internal(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return apperr.RateLimitExceeded()
		},
	})
}
