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

func TestProjectRepository_SoftDeleteByCode(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	repo := NewProjectRepository(gdb)

	created, err := repo.Create(ctx, map[string]any{
		"name":   "Highland Tower Development",
		"code":   "HTD-2025",
		"status": "construction",
	})
	require.NoError(t, err)

	got, err := repo.GetByCode(ctx, "HTD-2025")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, model.ProjectStatusConstruction, got.Status)

	require.NoError(t, repo.Delete(ctx, created.ID))

	_, err = repo.GetByCode(ctx, "HTD-2025")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	var raw model.Project
	require.NoError(t, gdb.Where("code = ?", "HTD-2025").First(&raw).Error)
	assert.False(t, raw.IsActive)
}

func TestProjectRepository_DuplicateCode(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(dbtest.New(t))

	_, err := repo.Create(ctx, map[string]any{"name": "One", "code": "DUP-1"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, map[string]any{"name": "Two", "code": "DUP-1"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestProjectRepository_Status(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(dbtest.New(t))
	a, err := repo.Create(ctx, map[string]any{"name": "A", "code": "A-1"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, map[string]any{"name": "B", "code": "B-1"})
	require.NoError(t, err)

	// free-form: planning straight to closeout is allowed
	updated, err := repo.SetStatus(ctx, a.ID, model.ProjectStatusCloseout)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusCloseout, updated.Status)

	_, err = repo.SetStatus(ctx, a.ID, "demolished")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	closeout, err := repo.ListByStatus(ctx, model.ProjectStatusCloseout)
	require.NoError(t, err)
	require.Len(t, closeout, 1)
	assert.Equal(t, a.ID, closeout[0].ID)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.ProjectStatusCloseout])
	assert.Equal(t, int64(1), counts[model.ProjectStatusPlanning])
}

func TestProjectRepository_TeamMembers(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	projects := NewProjectRepository(gdb)
	users := NewUserRepository(gdb)

	p, err := projects.Create(ctx, map[string]any{"name": "Team", "code": "TM-1"})
	require.NoError(t, err)
	other, err := projects.Create(ctx, map[string]any{"name": "Other", "code": "TM-2"})
	require.NoError(t, err)

	alice := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	bob := &model.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"}
	require.NoError(t, users.Insert(ctx, alice))
	require.NoError(t, users.Insert(ctx, bob))

	require.NoError(t, projects.AddTeamMember(ctx, p.ID, alice.ID))
	require.NoError(t, projects.AddTeamMember(ctx, p.ID, bob.ID))
	require.NoError(t, projects.AddTeamMember(ctx, p.ID, bob.ID))
	require.NoError(t, projects.AddTeamMember(ctx, other.ID, alice.ID))

	members, err := projects.TeamMembers(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	mine, err := projects.ListForMember(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	require.NoError(t, projects.RemoveTeamMember(ctx, p.ID, bob.ID))
	members, err = projects.TeamMembers(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "alice", members[0].Username)

	assert.ErrorIs(t, projects.AddTeamMember(ctx, p.ID, 999), apperrors.ErrNotFound)

	// hard delete clears join rows
	require.NoError(t, projects.HardDelete(ctx, p.ID))
	var joins int64
	require.NoError(t, gdb.Table("project_team_members").Where("project_id = ?", p.ID).Count(&joins).Error)
	assert.Zero(t, joins)
}

func TestProjectRepository_Milestones(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	repo := NewProjectRepository(gdb)
	p, err := repo.Create(ctx, map[string]any{"name": "M", "code": "M-1"})
	require.NoError(t, err)

	due := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	m := &model.Milestone{ProjectID: p.ID, Name: "Topping out", DueDate: &due}
	require.NoError(t, repo.AddMilestone(ctx, m))
	assert.ErrorIs(t, repo.AddMilestone(ctx, &model.Milestone{ProjectID: 999, Name: "Orphan"}), apperrors.ErrNotFound)

	done := due.AddDate(0, 0, -2)
	completed, err := repo.CompleteMilestone(ctx, m.ID, done)
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)

	again, err := repo.CompleteMilestone(ctx, m.ID, due.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.True(t, done.Equal(*again.CompletedAt))

	list, err := repo.Milestones(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsComplete())

	require.NoError(t, repo.HardDelete(ctx, p.ID))
	var remaining int64
	require.NoError(t, gdb.Model(&model.Milestone{}).Where("project_id = ?", p.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)
}
