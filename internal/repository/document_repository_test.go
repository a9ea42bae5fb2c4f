package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gcpanel/internal/db/dbtest"
	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/model"
)

type documentFixture struct {
	db         *gorm.DB
	projects   ProjectRepository
	rfis       RfiRepository
	submittals SubmittalRepository
	project    *model.Project
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	gdb := dbtest.New(t)
	f := &documentFixture{
		db:         gdb,
		projects:   NewProjectRepository(gdb),
		rfis:       NewRfiRepository(gdb),
		submittals: NewSubmittalRepository(gdb),
	}
	p, err := f.projects.Create(context.Background(), map[string]any{"name": "Docs", "code": "DOC-1"})
	require.NoError(t, err)
	f.project = p
	return f
}

func (f *documentFixture) rfi(t *testing.T, fields map[string]any) *model.Rfi {
	t.Helper()
	ctx := context.Background()
	number, err := f.rfis.NextNumber(ctx, f.project.ID)
	require.NoError(t, err)
	fields["project_id"] = f.project.ID
	fields["number"] = number
	r, err := f.rfis.Create(ctx, fields)
	require.NoError(t, err)
	return r
}

func TestRfiRepository_NextNumber(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)

	first := f.rfi(t, map[string]any{"subject": "Footing depth"})
	second := f.rfi(t, map[string]any{"subject": "Rebar spacing"})
	assert.Equal(t, "RFI-0001", first.Number)
	assert.Equal(t, "RFI-0002", second.Number)

	// soft-deleted numbers are not reused
	require.NoError(t, f.rfis.Delete(ctx, second.ID))
	third := f.rfi(t, map[string]any{"subject": "Anchor bolts"})
	assert.Equal(t, "RFI-0003", third.Number)

	got, err := f.rfis.GetByNumber(ctx, f.project.ID, "RFI-0003")
	require.NoError(t, err)
	assert.Equal(t, third.ID, got.ID)

	subNumber, err := f.submittals.NextNumber(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, "SUB-0001", subNumber)

	_, err = f.rfis.Create(ctx, map[string]any{"project_id": f.project.ID, "number": "RFI-0001", "subject": "dup"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestRfiRepository_StatusIsGuarded(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)

	_, err := f.rfis.Create(ctx, map[string]any{
		"project_id": f.project.ID,
		"number":     "RFI-0009",
		"subject":    "Shortcut",
		"status":     "closed",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	r := f.rfi(t, map[string]any{"subject": "Guarded"})
	updated, err := f.rfis.Update(ctx, r.ID, map[string]any{"status": "closed", "closed_date": time.Now(), "subject": "Still guarded"})
	require.NoError(t, err)
	assert.Equal(t, model.RfiStatusDraft, updated.Status)
	assert.Nil(t, updated.ClosedDate)
	assert.Equal(t, "Still guarded", updated.Subject)
}

func TestSubmittalRepository_UpdateStatusStampsOnce(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	s, err := f.submittals.Create(ctx, map[string]any{
		"project_id": f.project.ID,
		"number":     "SUB-0001",
		"title":      "Curtain wall shop drawings",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubmittalStatusDraft, s.Status)

	t0 := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, status := range []model.SubmittalStatus{
		model.SubmittalStatusSubmitted,
		model.SubmittalStatusUnderReview,
		model.SubmittalStatusApproved,
	} {
		_, err := f.submittals.UpdateStatus(ctx, s.ID, status, t0.AddDate(0, 0, i))
		require.NoError(t, err)
	}

	approved, err := f.submittals.GetByID(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, approved.ReviewDate)
	reviewed := *approved.ReviewDate
	assert.True(t, t0.AddDate(0, 0, 2).Equal(reviewed))

	again, err := f.submittals.UpdateStatus(ctx, s.ID, model.SubmittalStatusApproved, t0.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.True(t, reviewed.Equal(*again.ReviewDate))

	_, err = f.submittals.UpdateStatus(ctx, s.ID, model.SubmittalStatusDraft, t0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = f.submittals.UpdateStatus(ctx, 999, model.SubmittalStatusSubmitted, t0)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRfiRepository_Queries(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -3)
	future := now.AddDate(0, 0, 3)
	var alice, bob uint = 7, 8

	late := f.rfi(t, map[string]any{"subject": "Late", "due_date": past, "assigned_to_id": alice})
	f.rfi(t, map[string]any{"subject": "On time", "due_date": future, "created_by_id": alice})
	answered := f.rfi(t, map[string]any{"subject": "Answered late", "due_date": past, "created_by_id": bob})
	_, err := f.rfis.UpdateStatus(ctx, answered.ID, model.RfiStatusSubmitted, past)
	require.NoError(t, err)
	_, err = f.rfis.UpdateStatus(ctx, answered.ID, model.RfiStatusAnswered, now)
	require.NoError(t, err)

	overdue, err := f.rfis.ListOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)

	mine, err := f.rfis.ListForUser(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	drafts, err := f.rfis.ListByStatus(ctx, model.RfiStatusDraft)
	require.NoError(t, err)
	assert.Len(t, drafts, 2)

	byProject, err := f.rfis.ListByProject(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Len(t, byProject, 3)

	counts, err := f.rfis.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[model.RfiStatusDraft])
	assert.Equal(t, int64(1), counts[model.RfiStatusAnswered])
}

func TestRfiRepository_AttachmentsCascadeOnHardDelete(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	r := f.rfi(t, map[string]any{"subject": "With files"})
	keep := f.rfi(t, map[string]any{"subject": "Other"})

	for _, name := range []string{"sketch.pdf", "photo.jpg"} {
		require.NoError(t, f.rfis.AddAttachment(ctx, r.ID, &model.Attachment{Filename: name, StoragePath: "rfis/" + name}))
	}
	other := &model.Attachment{Filename: "keep.pdf", StoragePath: "rfis/keep.pdf"}
	require.NoError(t, f.rfis.AddAttachment(ctx, keep.ID, other))
	assert.ErrorIs(t, f.rfis.AddAttachment(ctx, 999, &model.Attachment{Filename: "x", StoragePath: "x"}), apperrors.ErrNotFound)

	files, err := f.rfis.Attachments(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, model.OwnerRfi, files[0].OwnerType)

	// another owner's attachment cannot be removed through r
	assert.ErrorIs(t, f.rfis.RemoveAttachment(ctx, r.ID, other.ID), apperrors.ErrNotFound)

	require.NoError(t, f.rfis.Delete(ctx, r.ID))
	require.NoError(t, f.rfis.HardDelete(ctx, r.ID))

	_, err = f.rfis.FindUnscoped(ctx, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	var orphans int64
	require.NoError(t, f.db.Model(&model.Attachment{}).Where("owner_type = ? AND owner_id = ?", model.OwnerRfi, r.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)

	kept, err := f.rfis.Attachments(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	require.NoError(t, f.rfis.RemoveAttachment(ctx, keep.ID, other.ID))
	kept, err = f.rfis.Attachments(ctx, keep.ID)
	require.NoError(t, err)
	assert.Empty(t, kept)
}
