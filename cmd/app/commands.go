// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/talentgate-identity/internal/database"
	"codeberg.org/oliverandrich/talentgate-identity/internal/i18n"
	"codeberg.org/oliverandrich/talentgate-identity/internal/repository"
	authsvc "codeberg.org/oliverandrich/talentgate-identity/internal/services/auth"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/email"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/password"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: migrateAction(database.RunMigrations),
			},
			{
				Name:   "down",
				Usage:  "Roll back the latest migration",
				Action: migrateAction(database.MigrateDown),
			},
			{
				Name:   "reset",
				Usage:  "Roll back every migration",
				Action: migrateAction(database.MigrateReset),
			},
		},
	}
}

func migrateAction(step func(*sql.DB) error) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		db, err := database.Connect(cmd.String("database-dsn"))
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer closeDB(db)

		if err := step(db.DB); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		version, err := database.MigrationVersion(db.DB)
		if err != nil {
			return err
		}
		slog.Info("schema version", "version", version)
		return nil
	}
}

func createAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "Create an admin account or promote an existing one",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "full-name",
				Value: "Administrator",
				Usage: "Display name of the admin account",
			},
		},
		Action: createAdmin,
	}
}

func createAdmin(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("admin-email")
	plain := cmd.String("admin-password")
	if addr == "" || plain == "" {
		return errors.New("--admin-email and --admin-password are required")
	}

	if err := i18n.Init(); err != nil {
		return fmt.Errorf("failed to init i18n: %w", err)
	}

	db, err := database.Open(cmd.String("database-dsn"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeDB(db)

	hasher, err := password.NewHasher(cmd.String("password-hasher"))
	if err != nil {
		return err
	}
	validator := password.DefaultValidator()
	if n := int(cmd.Int("password-min-length")); n > 0 {
		validator.MinLength = n
	}

	// Tokens are never issued here.
	accounts := authsvc.NewService(repository.New(db), nil, hasher, validator, email.LogSender{})
	user, err := accounts.CreateAdmin(ctx, addr, plain, cmd.String("full-name"))
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	slog.Info("admin ready", "identity_id", user.ID, "email", user.Email)
	return nil
}

func closeDB(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}
