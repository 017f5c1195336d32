// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"time"

	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

// source creates a value source chain combining env vars and TOML config
func source(envKey, tomlKey string) cli.ValueSourceChain {
	chain := cli.EnvVars(envKey)
	chain.Chain = append(chain.Chain, toml.TOML(tomlKey, configFile))
	return chain
}

// ConfigFlag selects the TOML file the other flags fall back to.
func ConfigFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Value:       "config.toml",
		Aliases:     []string{"c"},
		Usage:       "Path to configuration file",
		Sources:     cli.EnvVars("CONFIG"),
		Destination: &configPath,
	}
}

// Flags returns every flag the serve command reads.
func Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: source("HOST", "server.host"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: source("PORT", "server.port"),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application",
			Sources: source("BASE_URL", "server.base_url"),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: source("MAX_BODY_SIZE", "server.max_body_size"),
		},
		&cli.BoolFlag{
			Name:    "trust-proxy",
			Usage:   "Trust X-Forwarded-For for the client IP",
			Sources: source("TRUST_PROXY", "server.trust_proxy"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: source("LOG_LEVEL", "log.level"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: source("LOG_FORMAT", "log.format"),
		},
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "auto",
			Usage:   "TLS mode (auto, acme, manual, off)",
			Sources: source("TLS_MODE", "tls.mode"),
		},
		&cli.StringFlag{
			Name:    "tls-cert-dir",
			Value:   "./data/certs",
			Usage:   "Directory for ACME certificates",
			Sources: source("TLS_CERT_DIR", "tls.cert_dir"),
		},
		&cli.StringFlag{
			Name:    "tls-email",
			Usage:   "Email for ACME/Let's Encrypt registration",
			Sources: source("TLS_EMAIL", "tls.email"),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file (manual mode)",
			Sources: source("TLS_CERT_FILE", "tls.cert_file"),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file (manual mode)",
			Sources: source("TLS_KEY_FILE", "tls.key_file"),
		},
		// Token flags
		&cli.StringFlag{
			Name:    "token-access-secret",
			Usage:   "HMAC secret for access tokens",
			Sources: source("TOKEN_ACCESS_SECRET", "token.access_secret"),
		},
		&cli.StringFlag{
			Name:    "token-refresh-secret",
			Usage:   "HMAC secret for refresh tokens (must differ from the access secret)",
			Sources: source("TOKEN_REFRESH_SECRET", "token.refresh_secret"),
		},
		&cli.DurationFlag{
			Name:    "token-access-ttl",
			Value:   time.Hour,
			Usage:   "Access token lifetime",
			Sources: source("TOKEN_ACCESS_TTL", "token.access_ttl"),
		},
		&cli.DurationFlag{
			Name:    "token-refresh-ttl",
			Value:   7 * 24 * time.Hour,
			Usage:   "Refresh token lifetime",
			Sources: source("TOKEN_REFRESH_TTL", "token.refresh_ttl"),
		},
		&cli.StringFlag{
			Name:    "token-issuer",
			Value:   "talentgate",
			Usage:   "Token issuer claim",
			Sources: source("TOKEN_ISSUER", "token.issuer"),
		},
		&cli.StringFlag{
			Name:    "token-audience",
			Value:   "talentgate-api",
			Usage:   "Token audience claim",
			Sources: source("TOKEN_AUDIENCE", "token.audience"),
		},
		&cli.BoolFlag{
			Name:    "token-rotate-refresh",
			Usage:   "Make refresh tokens single-use and detect reuse",
			Sources: source("TOKEN_ROTATE_REFRESH", "token.rotate_refresh"),
		},
		// Password flags
		&cli.StringFlag{
			Name:    "password-hasher",
			Value:   "bcrypt",
			Usage:   "Hash algorithm for new passwords (bcrypt, argon2id)",
			Sources: source("PASSWORD_HASHER", "password.hasher"),
		},
		&cli.IntFlag{
			Name:    "password-min-length",
			Value:   8,
			Usage:   "Minimum password length",
			Sources: source("PASSWORD_MIN_LENGTH", "password.min_length"),
		},
		// Reset flags
		&cli.DurationFlag{
			Name:    "reset-code-ttl",
			Value:   15 * time.Minute,
			Usage:   "Password reset code lifetime",
			Sources: source("RESET_CODE_TTL", "reset.code_ttl"),
		},
		&cli.DurationFlag{
			Name:    "reset-sweep-interval",
			Value:   10 * time.Minute,
			Usage:   "Interval for deleting expired reset codes (0 disables)",
			Sources: source("RESET_SWEEP_INTERVAL", "reset.sweep_interval"),
		},
		// Rate limit flags
		&cli.BoolFlag{
			Name:    "ratelimit-enabled",
			Value:   true,
			Usage:   "Rate limit credential endpoints",
			Sources: source("RATELIMIT_ENABLED", "ratelimit.enabled"),
		},
		&cli.IntFlag{
			Name:    "ratelimit-max",
			Value:   5,
			Usage:   "Requests allowed per client and window",
			Sources: source("RATELIMIT_MAX", "ratelimit.max"),
		},
		&cli.DurationFlag{
			Name:    "ratelimit-window",
			Value:   15 * time.Minute,
			Usage:   "Rate limit window",
			Sources: source("RATELIMIT_WINDOW", "ratelimit.window"),
		},
		&cli.StringFlag{
			Name:    "ratelimit-store",
			Value:   "memory",
			Usage:   "Counter store (memory, redis)",
			Sources: source("RATELIMIT_STORE", "ratelimit.store"),
		},
		&cli.StringFlag{
			Name:    "ratelimit-redis-addr",
			Usage:   "Redis address for the redis store",
			Sources: source("RATELIMIT_REDIS_ADDR", "ratelimit.redis_addr"),
		},
		&cli.StringFlag{
			Name:    "ratelimit-redis-password",
			Usage:   "Redis password",
			Sources: source("RATELIMIT_REDIS_PASSWORD", "ratelimit.redis_password"),
		},
		&cli.IntFlag{
			Name:    "ratelimit-redis-db",
			Usage:   "Redis database number",
			Sources: source("RATELIMIT_REDIS_DB", "ratelimit.redis_db"),
		},
		// Identity provider flags
		&cli.StringFlag{
			Name:    "idp-provider",
			Usage:   "External identity provider (firebase, google; empty disables social sign-in)",
			Sources: source("IDP_PROVIDER", "idp.provider"),
		},
		&cli.StringFlag{
			Name:    "idp-firebase-project-id",
			Usage:   "Firebase project ID",
			Sources: source("IDP_FIREBASE_PROJECT_ID", "idp.firebase_project_id"),
		},
		&cli.StringFlag{
			Name:    "idp-google-client-id",
			Usage:   "Google OAuth client ID",
			Sources: source("IDP_GOOGLE_CLIENT_ID", "idp.google_client_id"),
		},
		&cli.DurationFlag{
			Name:    "idp-timeout",
			Value:   5 * time.Second,
			Usage:   "Deadline for verifying external ID tokens",
			Sources: source("IDP_TIMEOUT", "idp.timeout"),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host (empty logs emails instead)",
			Sources: source("SMTP_HOST", "smtp.host"),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: source("SMTP_PORT", "smtp.port"),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: source("SMTP_USERNAME", "smtp.username"),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: source("SMTP_PASSWORD", "smtp.password"),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address",
			Sources: source("SMTP_FROM", "smtp.from"),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "TalentGate",
			Usage:   "Sender display name",
			Sources: source("SMTP_FROM_NAME", "smtp.from_name"),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: source("SMTP_TLS", "smtp.tls"),
		},
	}
	return append(append(flags, DatabaseFlags()...), AdminFlags()...)
}

// DatabaseFlags returns the flags shared by every command touching the database.
func DatabaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/identity.db",
			Usage:   "Database DSN",
			Sources: source("DATABASE_DSN", "database.dsn"),
		},
	}
}

// AdminFlags returns the admin bootstrap flags.
func AdminFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "admin-email",
			Usage:   "Email of the bootstrap admin account",
			Sources: source("ADMIN_EMAIL", "admin.email"),
		},
		&cli.StringFlag{
			Name:    "admin-password",
			Usage:   "Password of the bootstrap admin account",
			Sources: source("ADMIN_PASSWORD", "admin.password"),
		},
	}
}
