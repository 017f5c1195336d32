// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/talentgate-identity/internal/database"
	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"codeberg.org/oliverandrich/talentgate-identity/internal/repository"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	base := []string{"talentgate-identity", "--config", filepath.Join(t.TempDir(), "absent.toml")}
	return newCommand().Run(context.Background(), append(base, args...))
}

func TestMigrateCommands(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "identity.db")

	require.NoError(t, run(t, "--database-dsn", dsn, "migrate", "up"))
	require.NoError(t, run(t, "--database-dsn", dsn, "migrate", "down"))
	require.NoError(t, run(t, "--database-dsn", dsn, "migrate", "down"))

	db, err := database.Connect(dsn)
	require.NoError(t, err)
	defer closeDB(db)

	version, err := database.MigrationVersion(db.DB)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	require.NoError(t, run(t, "--database-dsn", dsn, "migrate", "reset"))
	version, err = database.MigrationVersion(db.DB)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
}

func TestCreateAdminCommand(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "identity.db")

	err := run(t,
		"--database-dsn", dsn,
		"--admin-email", "Root@Example.com",
		"--admin-password", "Tr0ub4dor&3-horse",
		"create-admin", "--full-name", "Root Admin",
	)
	require.NoError(t, err)

	db, err := database.Open(dsn)
	require.NoError(t, err)
	defer closeDB(db)

	user, err := repository.New(db).GetUserByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, "Root Admin", user.FullName)
}

func TestCreateAdminCommand_RequiresCredentials(t *testing.T) {
	err := run(t, "--database-dsn", filepath.Join(t.TempDir(), "identity.db"), "create-admin")
	require.Error(t, err)
}
