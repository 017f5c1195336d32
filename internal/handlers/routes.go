// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"codeberg.org/oliverandrich/talentgate-identity/internal/middleware"
	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"github.com/labstack/echo/v4"
)

// Routes mounts the API on g. limit guards the credential endpoints.
func (h *Handlers) Routes(g *echo.Group, authn *middleware.Authenticator, limit echo.MiddlewareFunc) {
	requireAuth := authn.RequireAuth()

	a := g.Group("/auth")
	a.POST("/register", h.Register, limit)
	a.POST("/login", h.Login, limit)
	a.POST("/refresh-token", h.Refresh, limit)
	a.POST("/forgot-password", h.ForgotPassword, limit)
	a.POST("/reset-password", h.ResetPassword, limit)
	a.POST("/logout", h.Logout, requireAuth)
	a.GET("/me", h.Me, requireAuth)
	a.PUT("/profile", h.UpdateProfile, requireAuth)
	a.POST("/change-password", h.ChangePassword, requireAuth)

	f := g.Group("/firebase")
	f.POST("/verify-token", h.VerifyIDToken, authn.OptionalAuth())
	f.POST("/social-auth", h.SocialAuth, limit)
	f.POST("/link-account", h.LinkAccount, requireAuth)
	f.DELETE("/unlink-account/:id", h.UnlinkAccount, requireAuth)

	adm := g.Group("/admin", requireAuth, middleware.RequireRole(models.RoleAdmin))
	adm.GET("/users/:id", h.GetUser)
	adm.PATCH("/users/:id/role", h.SetRole)
	adm.PATCH("/users/:id/status", h.SetStatus)
}
