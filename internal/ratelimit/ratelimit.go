// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ratelimit counts requests per key in fixed windows.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/talentgate-identity/internal/config"
)

// Default ceiling for the credential endpoints.
const (
	DefaultMax    = 5
	DefaultWindow = 15 * time.Minute
)

// Store decides whether one more request for key fits into the current window.
type Store interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// New builds the store selected by cfg. It returns nil when rate limiting
// is disabled.
func New(ctx context.Context, cfg config.RateLimitConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	limit, window := cfg.Max, cfg.Window
	if limit <= 0 {
		limit = DefaultMax
	}
	if window <= 0 {
		window = DefaultWindow
	}

	switch cfg.Store {
	case "", "memory":
		return NewMemoryStore(limit, window), nil
	case "redis":
		client, err := Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return NewRedisStore(client, limit, window), nil
	default:
		return nil, fmt.Errorf("unknown rate limit store %q", cfg.Store)
	}
}
