// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli/v3"
)

// configPath is bound to --config; every TOML source reads through it, so
// the file is resolved after flag parsing.
var (
	configPath = "config.toml"
	configFile = altsrc.NewStringPtrSourcer(&configPath)
)

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	TLS       TLSConfig
	Token     TokenConfig
	Password  PasswordConfig
	Reset     ResetConfig
	RateLimit RateLimitConfig
	IdP       IdPConfig
	SMTP      SMTPConfig
	Admin     AdminConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int  // in MB
	TrustProxy  bool // read the client IP from X-Forwarded-For
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type TLSConfig struct {
	Mode     string // auto, acme, manual, off
	CertDir  string // ACME certificate cache
	Email    string // ACME email for Let's Encrypt
	CertFile string // Path to certificate file (manual mode)
	KeyFile  string // Path to private key file (manual mode)
}

type TokenConfig struct { //nolint:govet // fieldalignment not critical for config structs
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	RotateRefresh bool
}

type PasswordConfig struct {
	Hasher    string // bcrypt, argon2id
	MinLength int
}

type ResetConfig struct {
	CodeTTL       time.Duration
	SweepInterval time.Duration
}

type RateLimitConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Enabled       bool
	Max           int
	Window        time.Duration
	Store         string // memory, redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type IdPConfig struct {
	Provider          string // firebase, google; empty disables social sign-in
	FirebaseProjectID string
	GoogleClientID    string
	Timeout           time.Duration
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string // empty logs emails instead of sending them
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type AdminConfig struct {
	Email    string
	Password string
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
			TrustProxy:  cmd.Bool("trust-proxy"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		TLS: TLSConfig{
			Mode:     cmd.String("tls-mode"),
			CertDir:  cmd.String("tls-cert-dir"),
			Email:    cmd.String("tls-email"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
		Token: TokenConfig{
			AccessSecret:  cmd.String("token-access-secret"),
			RefreshSecret: cmd.String("token-refresh-secret"),
			AccessTTL:     cmd.Duration("token-access-ttl"),
			RefreshTTL:    cmd.Duration("token-refresh-ttl"),
			Issuer:        cmd.String("token-issuer"),
			Audience:      cmd.String("token-audience"),
			RotateRefresh: cmd.Bool("token-rotate-refresh"),
		},
		Password: PasswordConfig{
			Hasher:    cmd.String("password-hasher"),
			MinLength: int(cmd.Int("password-min-length")),
		},
		Reset: ResetConfig{
			CodeTTL:       cmd.Duration("reset-code-ttl"),
			SweepInterval: cmd.Duration("reset-sweep-interval"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       cmd.Bool("ratelimit-enabled"),
			Max:           int(cmd.Int("ratelimit-max")),
			Window:        cmd.Duration("ratelimit-window"),
			Store:         cmd.String("ratelimit-store"),
			RedisAddr:     cmd.String("ratelimit-redis-addr"),
			RedisPassword: cmd.String("ratelimit-redis-password"),
			RedisDB:       int(cmd.Int("ratelimit-redis-db")),
		},
		IdP: IdPConfig{
			Provider:          cmd.String("idp-provider"),
			FirebaseProjectID: cmd.String("idp-firebase-project-id"),
			GoogleClientID:    cmd.String("idp-google-client-id"),
			Timeout:           cmd.Duration("idp-timeout"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Admin: AdminConfig{
			Email:    cmd.String("admin-email"),
			Password: cmd.String("admin-password"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	return cfg
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Token.AccessSecret == "" || c.Token.RefreshSecret == "" {
		errs = append(errs, errors.New("token-access-secret and token-refresh-secret are required"))
	} else if c.Token.AccessSecret == c.Token.RefreshSecret {
		errs = append(errs, errors.New("token-access-secret and token-refresh-secret must differ"))
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}

	if !oneOf(c.Log.Format, "text", "json") {
		errs = append(errs, fmt.Errorf("unknown log-format %q", c.Log.Format))
	}
	if !oneOf(c.Password.Hasher, "bcrypt", "argon2id") {
		errs = append(errs, fmt.Errorf("unknown password-hasher %q", c.Password.Hasher))
	}
	if c.Reset.CodeTTL <= 0 {
		errs = append(errs, errors.New("reset-code-ttl must be positive"))
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("ratelimit-max and ratelimit-window must be positive"))
		}
		switch c.RateLimit.Store {
		case "memory":
		case "redis":
			if c.RateLimit.RedisAddr == "" {
				errs = append(errs, errors.New("ratelimit-store redis requires ratelimit-redis-addr"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown ratelimit-store %q", c.RateLimit.Store))
		}
	}

	switch c.IdP.Provider {
	case "":
	case "firebase":
		if c.IdP.FirebaseProjectID == "" {
			errs = append(errs, errors.New("idp-provider firebase requires idp-firebase-project-id"))
		}
	case "google":
		if c.IdP.GoogleClientID == "" {
			errs = append(errs, errors.New("idp-provider google requires idp-google-client-id"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown idp-provider %q", c.IdP.Provider))
	}

	if c.SMTP.Host != "" && c.SMTP.From == "" {
		errs = append(errs, errors.New("smtp-from is required when smtp-host is set"))
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		errs = append(errs, errors.New("admin-email and admin-password must be set together"))
	}

	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port
	mode := strings.ToLower(cfg.TLS.Mode)

	scheme := "http"
	if shouldUseTLS(mode, host, cfg.TLS.CertFile != "") {
		scheme = "https"
	}

	// ACME mode always uses port 443
	if mode == "acme" {
		return fmt.Sprintf("https://%s", host)
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// shouldUseTLS mirrors server.resolveTLSMode: auto serves plain HTTP unless
// certificate files are configured for a non-local host.
func shouldUseTLS(mode, host string, hasCert bool) bool {
	switch mode {
	case "off":
		return false
	case "acme", "manual":
		return true
	default: // "auto" or empty
		return !IsLocalhost(host) && hasCert
	}
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}
