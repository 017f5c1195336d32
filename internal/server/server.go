// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/talentgate-identity/internal/config"
	"codeberg.org/oliverandrich/talentgate-identity/internal/database"
	"codeberg.org/oliverandrich/talentgate-identity/internal/handlers"
	"codeberg.org/oliverandrich/talentgate-identity/internal/i18n"
	"codeberg.org/oliverandrich/talentgate-identity/internal/middleware"
	"codeberg.org/oliverandrich/talentgate-identity/internal/ratelimit"
	"codeberg.org/oliverandrich/talentgate-identity/internal/repository"
	authsvc "codeberg.org/oliverandrich/talentgate-identity/internal/services/auth"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/email"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/idp"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/password"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/reset"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/social"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

// APIPrefix is the versioned mount point; every route is also served at the root.
const APIPrefix = "/api/v1"

// App is the fully wired service.
type App struct {
	Echo    *echo.Echo
	Repo    *repository.Repository
	Auth    *authsvc.Service
	Sweeper *reset.Sweeper

	db      *sqlx.DB
	closers []io.Closer
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			slog.Error("failed to release resources", "error", closeErr)
		}
	}()

	if cfg.Admin.Email != "" {
		if adminErr := app.Auth.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); adminErr != nil {
			return fmt.Errorf("failed to ensure admin: %w", adminErr)
		}
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go app.Sweeper.Run(sweepCtx)

	return startWithGracefulShutdown(app.Echo, cfg)
}

// New opens the database and wires every service, middleware and route.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := i18n.Init(); err != nil {
		return nil, fmt.Errorf("failed to init i18n: %w", err)
	}

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app := &App{db: db}

	if err := app.wire(ctx, cfg); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context, cfg *config.Config) error {
	repo := repository.New(a.db)
	a.Repo = repo

	hasher, err := password.NewHasher(cfg.Password.Hasher)
	if err != nil {
		return err
	}
	validator := password.DefaultValidator()
	if cfg.Password.MinLength > 0 {
		validator.MinLength = cfg.Password.MinLength
	}

	mailer, err := email.New(&cfg.SMTP)
	if err != nil {
		return fmt.Errorf("failed to init email: %w", err)
	}

	tokens, err := token.NewService(token.Config{
		AccessSecret:  cfg.Token.AccessSecret,
		RefreshSecret: cfg.Token.RefreshSecret,
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		RotateRefresh: cfg.Token.RotateRefresh,
	}, repo)
	if err != nil {
		return fmt.Errorf("failed to init tokens: %w", err)
	}

	verifier, err := idp.New(ctx, cfg.IdP)
	if err != nil {
		return fmt.Errorf("failed to init identity provider: %w", err)
	}
	if verifier == nil {
		slog.Warn("no identity provider configured, social sign-in is disabled")
	}

	limiter, err := ratelimit.New(ctx, cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("failed to init rate limiter: %w", err)
	}
	if c, ok := limiter.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	if limiter == nil {
		slog.Warn("rate limiting is disabled")
	}

	accounts := authsvc.NewService(repo, tokens, hasher, validator, mailer)
	resets := reset.NewService(repo, mailer, hasher, validator, cfg.Reset.CodeTTL).WithRevoker(tokens)
	linker := social.NewLinker(repo, verifier)
	a.Auth = accounts

	a.Sweeper = reset.NewSweeper(cfg.Reset.SweepInterval).
		Add("reset_codes", repo.DeleteExpiredResetCodes).
		Add("refresh_tokens", repo.DeleteExpiredRefreshTokens)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler
	if cfg.Server.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	setupMiddleware(e, cfg)

	h := handlers.New(repo, accounts, tokens, resets, linker)
	authn := middleware.NewAuthenticator(tokens, repo)
	limit := ratelimit.Middleware(limiter, "auth")

	e.GET("/health", h.Health)
	h.Routes(e.Group(""), authn, limit)
	h.Routes(e.Group(APIPrefix), authn, limit)

	a.Echo = e
	return nil
}

// Close releases the rate limiter backend and the database.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP→HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeManual:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
