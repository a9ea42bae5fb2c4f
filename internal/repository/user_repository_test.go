package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcpanel/internal/db/dbtest"
	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/model"
)

func seedRoles(t *testing.T, roles RoleRepository) {
	t.Helper()
	for _, r := range model.DefaultRoles {
		_, err := roles.Ensure(context.Background(), r.Name, r.Description)
		require.NoError(t, err)
	}
}

func TestUserRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	users := NewUserRepository(gdb)
	seedRoles(t, NewRoleRepository(gdb))

	u := &model.User{Username: "jdoe", Email: "jdoe@example.com", PasswordHash: "hash"}
	require.NoError(t, users.Insert(ctx, u))
	assert.Equal(t, model.UserStatusActive, u.Status)
	require.NoError(t, users.AssignRole(ctx, u.ID, model.RoleEngineer))
	require.NoError(t, users.AssignRole(ctx, u.ID, model.RoleEngineer))

	tests := []struct {
		name   string
		lookup func() (*model.User, error)
	}{
		{"username", func() (*model.User, error) { return users.GetByUsername(ctx, "jdoe") }},
		{"email", func() (*model.User, error) { return users.GetByEmail(ctx, "jdoe@example.com") }},
		{"login by username", func() (*model.User, error) { return users.GetByUsernameOrEmail(ctx, "jdoe") }},
		{"login by email", func() (*model.User, error) { return users.GetByUsernameOrEmail(ctx, "jdoe@example.com") }},
		{"with roles", func() (*model.User, error) { return users.WithRoles(ctx, u.ID) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.lookup()
			require.NoError(t, err)
			assert.Equal(t, u.ID, got.ID)
			assert.Equal(t, []string{model.RoleEngineer}, got.RoleNames())
		})
	}

	_, err := users.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, users.RevokeRole(ctx, u.ID, model.RoleEngineer))
	got, err := users.WithRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Roles)

	assert.ErrorIs(t, users.AssignRole(ctx, u.ID, "astronaut"), apperrors.ErrNotFound)
}

func TestUserRepository_LoginBookkeeping(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(dbtest.New(t))
	u := &model.User{Username: "field1", Email: "field1@example.com", PasswordHash: "hash"}
	require.NoError(t, users.Insert(ctx, u))

	require.NoError(t, users.RecordFailedLogin(ctx, u.ID))
	require.NoError(t, users.RecordFailedLogin(ctx, u.ID))
	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.FailedLoginAttempts)

	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, users.RecordSuccessfulLogin(ctx, u.ID, at))
	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FailedLoginAttempts)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(*got.LastLoginAt))

	assert.ErrorIs(t, users.RecordFailedLogin(ctx, 999), apperrors.ErrNotFound)
}

func TestUserRepository_StatusAndPassword(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(dbtest.New(t))
	u := &model.User{Username: "pm", Email: "pm@example.com", PasswordHash: "old"}
	require.NoError(t, users.Insert(ctx, u))

	require.NoError(t, users.SetStatus(ctx, u.ID, model.UserStatusSuspended))
	assert.ErrorIs(t, users.SetStatus(ctx, u.ID, "retired"), apperrors.ErrValidation)

	suspended, err := users.ListByStatus(ctx, model.UserStatusSuspended)
	require.NoError(t, err)
	require.Len(t, suspended, 1)
	assert.False(t, suspended[0].CanLogin())

	require.NoError(t, users.SetPassword(ctx, u.ID, "new"))
	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)

	// password_hash is never writable through the map API
	_, err = users.Update(ctx, u.ID, map[string]any{"password_hash": "sneaky"})
	require.NoError(t, err)
	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)
}

func TestRoleRepository_EnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	roles := NewRoleRepository(dbtest.New(t))

	first, err := roles.Ensure(ctx, model.RoleViewer, "Read-only access")
	require.NoError(t, err)
	second, err := roles.Ensure(ctx, model.RoleViewer, "changed")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Read-only access", second.Description)

	require.NoError(t, roles.Delete(ctx, first.ID))
	_, err = roles.GetByName(ctx, model.RoleViewer)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	revived, err := roles.Ensure(ctx, model.RoleViewer, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, revived.ID)
	assert.True(t, revived.IsActive)

	n, err := roles.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
