// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"codeberg.org/oliverandrich/talentgate-identity/internal/repository"
	"codeberg.org/oliverandrich/talentgate-identity/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := &models.User{Email: "  Alice@Example.COM ", FullName: "Alice", IsActive: true}
	err := repo.CreateUser(ctx, user)

	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.RoleCandidate, user.Role)
	assert.NotZero(t, user.CreatedAt)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "alice@example.com")

	err := repo.CreateUser(ctx, &models.User{Email: "ALICE@example.com", IsActive: true})

	require.ErrorIs(t, err, repository.ErrDuplicate)
	count, err := testutil.CountUsers(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCreateUser_DuplicateExternalUID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	testutil.NewTestUser(t, repo, "a@example.com", testutil.WithExternalUID("uid-1", models.ProviderGoogle))

	uid := "uid-1"
	err := repo.CreateUser(context.Background(), &models.User{Email: "b@example.com", ExternalUID: &uid})

	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestGetUserByID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	created := testutil.NewTestUser(t, repo, "alice@example.com", testutil.WithRole(models.RoleHR))

	retrieved, err := repo.GetUserByID(ctx, created.ID)

	require.NoError(t, err)
	assert.Equal(t, created.ID, retrieved.ID)
	assert.Equal(t, "alice@example.com", retrieved.Email)
	assert.Equal(t, models.RoleHR, retrieved.Role)
	assert.True(t, retrieved.IsActive)
	assert.True(t, retrieved.HasPassword())
	require.NotNil(t, retrieved.AuthProvider)
	assert.Equal(t, models.ProviderLocal, *retrieved.AuthProvider)
	assert.Nil(t, retrieved.ExternalUID)
	assert.Nil(t, retrieved.LastLoginAt)
}

func TestGetUserByID_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetUserByID(context.Background(), 999)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetUserByEmail_CaseInsensitive(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	created := testutil.NewTestUser(t, repo, "alice@example.com")

	retrieved, err := repo.GetUserByEmail(context.Background(), "ALICE@Example.com")

	require.NoError(t, err)
	assert.Equal(t, created.ID, retrieved.ID)
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetUserByExternalUID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	created := testutil.NewTestUser(t, repo, "a@example.com", testutil.WithExternalUID("uid-1", models.ProviderGoogle))

	retrieved, err := repo.GetUserByExternalUID(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, retrieved.ID)

	_, err = repo.GetUserByExternalUID(context.Background(), "uid-2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateUser_Partial(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")
	name := "Alice Liddell"
	verified := true

	err := repo.UpdateUser(ctx, user.ID, repository.UserUpdate{FullName: &name, EmailVerified: &verified})
	require.NoError(t, err)

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", got.FullName)
	assert.True(t, got.EmailVerified)
	assert.Equal(t, models.RoleCandidate, got.Role)
	assert.Equal(t, user.PasswordHash, got.PasswordHash)
}

func TestUpdateUser_Empty(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	assert.NoError(t, repo.UpdateUser(context.Background(), 999, repository.UserUpdate{}))
}

func TestUpdateUser_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.SetUserActive(context.Background(), 999, false)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSetUserRoleAndActive(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")

	require.NoError(t, repo.SetUserRole(ctx, user.ID, models.RoleRecruiter))
	require.NoError(t, repo.SetUserActive(ctx, user.ID, false))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRecruiter, got.Role)
	assert.False(t, got.IsActive)
}

func TestSetUserRole_KeepsLastAdmin(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	first := testutil.NewTestUser(t, repo, "first@example.com", testutil.WithRole(models.RoleAdmin))
	second := testutil.NewTestUser(t, repo, "second@example.com", testutil.WithRole(models.RoleAdmin))

	require.NoError(t, repo.SetUserRole(ctx, first.ID, models.RoleCandidate))
	assert.ErrorIs(t, repo.SetUserRole(ctx, second.ID, models.RoleRecruiter), repository.ErrLastAdmin)
	assert.ErrorIs(t, repo.SetUserActive(ctx, second.ID, false), repository.ErrLastAdmin)
	require.NoError(t, repo.SetUserRole(ctx, second.ID, models.RoleAdmin))

	count, err := repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSetUserRole_RejectedByConstraint(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	user := testutil.NewTestUser(t, repo, "alice@example.com")

	assert.Error(t, repo.SetUserRole(context.Background(), user.ID, models.Role("ROOT")))
}

func TestUpdateUserPassword(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")

	require.NoError(t, repo.UpdateUserPassword(ctx, user.ID, "new-hash"))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PasswordHash)
	assert.Equal(t, "new-hash", *got.PasswordHash)
}

func TestTouchLastLogin(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")

	require.NoError(t, repo.TouchLastLogin(ctx, user.ID))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLoginAt)
}

func TestLinkExternalIdentity(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")

	require.NoError(t, repo.LinkExternalIdentity(ctx, user.ID, "uid-1", models.ProviderGoogle))
	// Relinking the same uid is a no-op.
	require.NoError(t, repo.LinkExternalIdentity(ctx, user.ID, "uid-1", models.ProviderGoogle))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExternalUID)
	assert.Equal(t, "uid-1", *got.ExternalUID)
	assert.Equal(t, models.ProviderGoogle, *got.AuthProvider)
}

func TestLinkExternalIdentity_AlreadyLinkedToOtherUID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com", testutil.WithExternalUID("uid-1", models.ProviderGoogle))

	err := repo.LinkExternalIdentity(ctx, user.ID, "uid-2", models.ProviderGitHub)

	require.ErrorIs(t, err, repository.ErrAlreadyLinked)
	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", *got.ExternalUID)
}

func TestLinkExternalIdentity_UIDOwnedByOther(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "a@example.com", testutil.WithExternalUID("uid-1", models.ProviderGoogle))
	b := testutil.NewTestUser(t, repo, "b@example.com")

	err := repo.LinkExternalIdentity(ctx, b.ID, "uid-1", models.ProviderGoogle)

	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestLinkExternalIdentity_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.LinkExternalIdentity(context.Background(), 999, "uid-1", models.ProviderGoogle)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUnlinkExternalIdentity(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com", testutil.WithExternalUID("uid-1", models.ProviderGoogle))

	require.NoError(t, repo.UnlinkExternalIdentity(ctx, user.ID))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ExternalUID)
	assert.Nil(t, got.AuthProvider)

	assert.ErrorIs(t, repo.UnlinkExternalIdentity(ctx, user.ID), repository.ErrNotFound)
}

func TestCountAdmins(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "a@example.com", testutil.WithRole(models.RoleAdmin))
	testutil.NewTestUser(t, repo, "b@example.com", testutil.WithRole(models.RoleAdmin), testutil.Inactive())
	testutil.NewTestUser(t, repo, "c@example.com")

	count, err := repo.CountAdmins(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
