package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcpanel/internal/db/dbtest"
	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/model"
)

func TestConfigRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewConfigRepository(dbtest.New(t))

	_, err := repo.Get(ctx, "company_name")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, repo.Set(ctx, "company_name", "Acme Builders"))
	require.NoError(t, repo.Set(ctx, "company_name", "Acme Construction"))
	require.NoError(t, repo.Set(ctx, "timezone", "America/Los_Angeles"))

	v, err := repo.Get(ctx, "company_name")
	require.NoError(t, err)
	assert.Equal(t, "Acme Construction", v)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "company_name", all[0].Key)
}

func TestAuditRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepository(dbtest.New(t))
	uid := uint(3)

	require.NoError(t, repo.Create(ctx, &model.AuditLog{UserID: &uid, Action: "create", Entity: "rfis", EntityID: 1}))
	require.NoError(t, repo.CreateBatch(ctx, []model.AuditLog{
		{Action: "update", Entity: "rfis", EntityID: 1},
		{Action: "delete", Entity: "projects", EntityID: 4},
	}))
	require.NoError(t, repo.CreateBatch(ctx, nil))

	entries, err := repo.ListForEntity(ctx, "rfis", 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "delete", recent[0].Action)
}
