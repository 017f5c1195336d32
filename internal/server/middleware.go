// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"

	"codeberg.org/oliverandrich/talentgate-identity/internal/config"
	"codeberg.org/oliverandrich/talentgate-identity/internal/middleware"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func setupMiddleware(e *echo.Echo, cfg *config.Config) {
	e.Pre(echomw.RemoveTrailingSlash())

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(echomw.Secure())
	e.Use(echomw.BodyLimit(bodyLimit(cfg.Server.MaxBodySize)))
	e.Use(middleware.Locale())
}

// bodyLimit formats the configured size in megabytes, defaulting to 1M.
func bodyLimit(mb int) string {
	if mb <= 0 {
		mb = 1
	}
	return fmt.Sprintf("%dM", mb)
}
