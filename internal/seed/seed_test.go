package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcpanel/internal/db/dbtest"
	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/model"
	"gcpanel/internal/repository"
	"gcpanel/internal/service"
)

func TestLoad_Default(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)
	require.Len(t, f.Projects, 2)

	htd := f.Projects[0]
	assert.Equal(t, "HTD-2025", htd.Code)
	require.NotNil(t, htd.StartDate)
	assert.Equal(t, 2024, htd.StartDate.Year())
	assert.Len(t, htd.Rfis, 5)
	assert.Len(t, htd.Submittals, 3)
	assert.Equal(t, []model.RfiStatus{model.RfiStatusSubmitted}, htd.Rfis[0].Lifecycle)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("projects:\n  - code: X-1\n    name: Small job\n"), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Projects, 1)
	assert.Equal(t, "Small job", f.Projects[0].Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "projects:\n  - code: A\n    name: A\n    colour: red\n"},
		{"missing code", "projects:\n  - name: A\n"},
		{"duplicate code", "projects:\n  - code: A\n    name: A\n  - code: A\n    name: B\n"},
		{"rfi without subject", "projects:\n  - code: A\n    name: A\n    rfis:\n      - number: RFI-1\n"},
		{"submittal without number", "projects:\n  - code: A\n    name: A\n    submittals:\n      - title: Steel\n"},
		{"not yaml", "projects: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

type harness struct {
	seeder     *Seeder
	projects   service.ProjectService
	rfis       service.RfiService
	submittals service.SubmittalService
	actor      *model.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gdb := dbtest.New(t)
	audit := service.NewAuditService(repository.NewAuditRepository(gdb))
	t.Cleanup(audit.Close)

	projectRepo := repository.NewProjectRepository(gdb)
	rfiRepo := repository.NewRfiRepository(gdb)
	subRepo := repository.NewSubmittalRepository(gdb)

	actor := &model.User{Username: "admin", Email: "admin@example.com", PasswordHash: "x"}
	require.NoError(t, repository.NewUserRepository(gdb).Insert(context.Background(), actor))

	h := &harness{
		projects:   service.NewProjectService(projectRepo, nil, audit),
		rfis:       service.NewRfiService(rfiRepo, projectRepo, audit, nil),
		submittals: service.NewSubmittalService(subRepo, projectRepo, audit, nil),
		actor:      actor,
	}
	h.seeder = NewSeeder(h.projects, h.rfis, rfiRepo, h.submittals, subRepo)
	return h
}

func TestSeeder_Apply(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	f, err := Load("")
	require.NoError(t, err)

	res, err := h.seeder.Apply(ctx, h.actor, f)
	require.NoError(t, err)
	assert.Equal(t, &Result{ProjectsCreated: 2, RfisCreated: 5, SubmittalsCreated: 3}, res)

	htd, err := h.projects.GetByCode(ctx, "HTD-2025")
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusConstruction, htd.Status)
	assert.Equal(t, "45500000", htd.Budget.String())

	milestones, err := h.projects.Milestones(ctx, htd.ID)
	require.NoError(t, err)
	assert.Len(t, milestones, 3)

	rfis, err := h.rfis.ListByProject(ctx, htd.ID)
	require.NoError(t, err)
	byNumber := map[string]model.Rfi{}
	for _, r := range rfis {
		byNumber[r.Number] = r
	}
	assert.Equal(t, model.RfiStatusSubmitted, byNumber["RFI-0001"].Status)
	assert.Equal(t, model.RfiStatusUnderReview, byNumber["RFI-0002"].Status)
	assert.Equal(t, model.RfiStatusAnswered, byNumber["RFI-0003"].Status)
	assert.Contains(t, byNumber["RFI-0003"].Response, "embed plate")
	assert.Equal(t, model.RfiStatusDraft, byNumber["RFI-0004"].Status)

	subs, err := h.submittals.ListByProject(ctx, htd.ID)
	require.NoError(t, err)
	statuses := map[string]model.SubmittalStatus{}
	for _, s := range subs {
		statuses[s.Number] = s.Status
	}
	assert.Equal(t, map[string]model.SubmittalStatus{
		"SUB-0001": model.SubmittalStatusApproved,
		"SUB-0002": model.SubmittalStatusUnderReview,
		"SUB-0003": model.SubmittalStatusReviseAndResubmit,
	}, statuses)
}

func TestSeeder_ApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	f, err := Load("")
	require.NoError(t, err)

	_, err = h.seeder.Apply(ctx, h.actor, f)
	require.NoError(t, err)

	f.Projects[0].Name = "Highland Tower"
	res, err := h.seeder.Apply(ctx, h.actor, f)
	require.NoError(t, err)
	assert.Equal(t, &Result{ProjectsUpdated: 2, RfisUpdated: 5, SubmittalsUpdated: 3}, res)

	all, err := h.projects.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	htd, err := h.projects.GetByCode(ctx, "HTD-2025")
	require.NoError(t, err)
	assert.Equal(t, "Highland Tower", htd.Name)

	milestones, err := h.projects.Milestones(ctx, htd.ID)
	require.NoError(t, err)
	assert.Len(t, milestones, 3, "milestones are only added on create")

	rfis, err := h.rfis.ListByProject(ctx, htd.ID)
	require.NoError(t, err)
	assert.Len(t, rfis, 5)
	for _, r := range rfis {
		if r.Number == "RFI-0003" {
			assert.Equal(t, model.RfiStatusAnswered, r.Status, "status survives a rerun")
		}
	}
}
