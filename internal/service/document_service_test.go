package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/model"
)

func TestRfiService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewRfiService(f.rfiRepo, f.projects, f.audit, nil)
	author := f.user(t, "eng", "password123", model.RoleEngineer)
	p := f.project(t, "P-1")

	first, err := svc.Create(ctx, author, p.ID, map[string]any{"subject": "Slab thickness"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, author, p.ID, map[string]any{"subject": "Door hardware"})
	require.NoError(t, err)

	assert.Equal(t, "RFI-0001", first.Number)
	assert.Equal(t, "RFI-0002", second.Number)
	assert.Equal(t, model.RfiStatusDraft, first.Status)
	assert.Equal(t, model.PriorityMedium, first.Priority)
	require.NotNil(t, first.CreatedByID)
	assert.Equal(t, author.ID, *first.CreatedByID)
	require.NotNil(t, first.DueDate)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), *first.DueDate, time.Minute)

	due := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	explicit, err := svc.Create(ctx, author, p.ID, map[string]any{"subject": "Explicit", "due_date": due})
	require.NoError(t, err)
	assert.True(t, due.Equal(*explicit.DueDate))

	tests := []struct {
		name      string
		projectID uint
		fields    map[string]any
		wantErr   error
	}{
		{"unknown project", 9999, map[string]any{"subject": "x"}, apperrors.ErrNotFound},
		{"status is lifecycle-owned", p.ID, map[string]any{"subject": "x", "status": "answered"}, apperrors.ErrValidation},
		{"unknown field", p.ID, map[string]any{"subject": "x", "colour": "red"}, apperrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, author, tt.projectID, tt.fields)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRfiService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewRfiService(f.rfiRepo, f.projects, f.audit, nil)
	actor := f.user(t, "pm", "password123", model.RoleProjectManager)
	p := f.project(t, "P-1")

	rfi, err := svc.Create(ctx, actor, p.ID, map[string]any{"subject": "Column grid"})
	require.NoError(t, err)

	_, err = svc.Respond(ctx, actor, rfi.ID, "Use grid B")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "drafts cannot be answered")

	_, err = svc.Respond(ctx, actor, rfi.ID, "  ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	tr, err := svc.Transitions(ctx, rfi.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RfiStatusDraft, tr.Current)
	assert.ElementsMatch(t, []model.RfiStatus{model.RfiStatusSubmitted, model.RfiStatusClosed}, tr.Allowed)

	submitted, err := svc.UpdateStatus(ctx, actor, rfi.ID, model.RfiStatusSubmitted)
	require.NoError(t, err)
	require.NotNil(t, submitted.SubmittedDate)

	answered, err := svc.Respond(ctx, actor, rfi.ID, "Use grid B")
	require.NoError(t, err)
	assert.Equal(t, model.RfiStatusAnswered, answered.Status)
	assert.Equal(t, "Use grid B", answered.Response)
	require.NotNil(t, answered.ResponseDate)

	closed, err := svc.UpdateStatus(ctx, actor, rfi.ID, model.RfiStatusClosed)
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedDate)
	assert.True(t, answered.ResponseDate.Equal(*closed.ResponseDate), "response date is stamped once")

	again, err := svc.UpdateStatus(ctx, actor, rfi.ID, model.RfiStatusClosed)
	require.NoError(t, err)
	assert.True(t, closed.ClosedDate.Equal(*again.ClosedDate))

	_, err = svc.UpdateStatus(ctx, actor, rfi.ID, model.RfiStatusDraft)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	_, err = svc.UpdateStatus(ctx, actor, rfi.ID, "bogus")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestRfiService_Queries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewRfiService(f.rfiRepo, f.projects, f.audit, nil)
	alice := f.user(t, "alice", "password123", model.RoleEngineer)
	bob := f.user(t, "bob", "password123", model.RoleEngineer)
	p := f.project(t, "P-1")
	past := time.Now().Add(-48 * time.Hour)

	_, err := svc.Create(ctx, alice, p.ID, map[string]any{"subject": "Mine"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, p.ID, map[string]any{"subject": "Assigned", "assigned_to_id": alice.ID, "due_date": past})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, p.ID, map[string]any{"subject": "Bob only"})
	require.NoError(t, err)

	mine, err := svc.ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	overdue, err := svc.ListOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "Assigned", overdue[0].Subject)

	byProject, err := svc.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, byProject, 3)

	_, err = svc.ListByProject(ctx, 9999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	counts, err := svc.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[model.RfiStatusDraft])
}

func TestRfiService_Attachments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewRfiService(f.rfiRepo, f.projects, f.audit, nil)
	actor := f.user(t, "field", "password123", model.RoleField)
	p := f.project(t, "P-1")
	rfi, err := svc.Create(ctx, actor, p.ID, map[string]any{"subject": "Photo"})
	require.NoError(t, err)

	att, err := svc.AddAttachment(ctx, actor, rfi.ID, AttachmentInput{Filename: "../site/photo.jpg", Size: 2048, MimeType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", att.Filename)
	assert.True(t, strings.HasPrefix(att.StoragePath, "rfis/"), att.StoragePath)
	assert.True(t, strings.HasSuffix(att.StoragePath, "-photo.jpg"), att.StoragePath)
	require.NotNil(t, att.UploadedByID)
	assert.Equal(t, actor.ID, *att.UploadedByID)

	list, err := svc.Attachments(ctx, rfi.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.AddAttachment(ctx, actor, rfi.ID, AttachmentInput{Filename: ""})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = svc.AddAttachment(ctx, actor, 9999, AttachmentInput{Filename: "x.pdf"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, svc.RemoveAttachment(ctx, actor, rfi.ID, att.ID))
	assert.ErrorIs(t, svc.RemoveAttachment(ctx, actor, rfi.ID, att.ID), apperrors.ErrNotFound)
}

func TestSubmittalService_ReviewCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewSubmittalService(f.subRepo, f.projects, f.audit, nil)
	actor := f.user(t, "pm", "password123", model.RoleProjectManager)
	p := f.project(t, "P-1")

	sub, err := svc.Create(ctx, actor, p.ID, map[string]any{"title": "Curtain wall shop drawings", "spec_section": "08 44 13"})
	require.NoError(t, err)
	assert.Equal(t, "SUB-0001", sub.Number)
	assert.Equal(t, 0, sub.Revision)

	_, err = svc.Review(ctx, actor, sub.ID, model.SubmittalStatusApproved, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "drafts are not reviewable")

	_, err = svc.UpdateStatus(ctx, actor, sub.ID, model.SubmittalStatusSubmitted)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, actor, sub.ID, model.SubmittalStatusUnderReview)
	require.NoError(t, err)

	_, err = svc.Review(ctx, actor, sub.ID, model.SubmittalStatusClosed, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	returned, err := svc.Review(ctx, actor, sub.ID, model.SubmittalStatusReviseAndResubmit, "Add anchor details")
	require.NoError(t, err)
	assert.Equal(t, "Add anchor details", returned.Comments)
	assert.Nil(t, returned.ReviewDate, "revise and resubmit is not a final review")

	resubmitted, err := svc.UpdateStatus(ctx, actor, sub.ID, model.SubmittalStatusSubmitted)
	require.NoError(t, err)
	assert.Equal(t, 1, resubmitted.Revision)
	assert.Equal(t, model.SubmittalStatusSubmitted, resubmitted.Status)

	_, err = svc.UpdateStatus(ctx, actor, sub.ID, model.SubmittalStatusUnderReview)
	require.NoError(t, err)
	approved, err := svc.Review(ctx, actor, sub.ID, model.SubmittalStatusApprovedAsNoted, "OK with notes")
	require.NoError(t, err)
	require.NotNil(t, approved.ReviewDate)
	assert.Equal(t, 1, approved.Revision)
}

func TestDocumentService_AuditTrail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewRfiService(f.rfiRepo, f.projects, f.audit, nil)
	actor := f.user(t, "pm", "password123", model.RoleProjectManager)
	p := f.project(t, "P-1")

	rfi, err := svc.Create(ctx, actor, p.ID, map[string]any{"subject": "Audit me"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, actor, rfi.ID, map[string]any{"location": "Level 2", "category": "Structural"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, actor, rfi.ID))

	f.audit.Close()

	entries, err := f.auditRepo.ListForEntity(ctx, "rfis", rfi.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	actions := []string{entries[0].Action, entries[1].Action, entries[2].Action}
	assert.ElementsMatch(t, []string{ActionCreate, ActionUpdate, ActionDelete}, actions)
	for _, e := range entries {
		require.NotNil(t, e.UserID)
		assert.Equal(t, actor.ID, *e.UserID)
		if e.Action == ActionUpdate {
			assert.Equal(t, "category,location", e.Details)
		}
	}
}

type sentNotice struct {
	userID  uint
	level   string
	message string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotice
}

func (n *recordingNotifier) NotifyUser(_ context.Context, userID uint, level, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotice{userID, level, message})
	return nil
}

func (n *recordingNotifier) take() []sentNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.sent
	n.sent = nil
	return out
}

func TestDocumentService_Notifications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	notes := &recordingNotifier{}
	rfis := NewRfiService(f.rfiRepo, f.projects, f.audit, notes)
	submittals := NewSubmittalService(f.subRepo, f.projects, f.audit, notes)
	pm := f.user(t, "pm", "password123", model.RoleProjectManager)
	eng := f.user(t, "eng", "password123", model.RoleEngineer)
	arch := f.user(t, "arch", "password123", model.RoleEngineer)
	p := f.project(t, "P-1")

	rfi, err := rfis.Create(ctx, pm, p.ID, map[string]any{"subject": "Slab edge", "assigned_to_id": eng.ID})
	require.NoError(t, err)
	assert.Equal(t, []sentNotice{{eng.ID, "info", "You were assigned RFI-0001 Slab edge"}}, notes.take())

	_, err = rfis.Update(ctx, pm, rfi.ID, map[string]any{"location": "Level 3"})
	require.NoError(t, err)
	assert.Empty(t, notes.take(), "no reassignment")

	_, err = rfis.Update(ctx, pm, rfi.ID, map[string]any{"assigned_to_id": arch.ID})
	require.NoError(t, err)
	assert.Equal(t, []sentNotice{{arch.ID, "info", "You were assigned RFI-0001 Slab edge"}}, notes.take())

	_, err = rfis.UpdateStatus(ctx, pm, rfi.ID, model.RfiStatusSubmitted)
	require.NoError(t, err)
	assert.Equal(t, []sentNotice{{arch.ID, "info", "RFI-0001 Slab edge moved to submitted"}}, notes.take(),
		"the acting creator is not told about their own change")

	_, err = rfis.Respond(ctx, arch, rfi.ID, "Extend 150mm")
	require.NoError(t, err)
	assert.Equal(t, []sentNotice{{pm.ID, "success", "RFI-0001 Slab edge moved to answered"}}, notes.take())

	sub, err := submittals.Create(ctx, pm, p.ID, map[string]any{"title": "Rebar shop drawings"})
	require.NoError(t, err)
	assert.Empty(t, notes.take(), "unassigned")
	_, err = submittals.UpdateStatus(ctx, pm, sub.ID, model.SubmittalStatusSubmitted)
	require.NoError(t, err)
	_, err = submittals.UpdateStatus(ctx, pm, sub.ID, model.SubmittalStatusUnderReview)
	require.NoError(t, err)
	assert.Empty(t, notes.take())

	_, err = submittals.Review(ctx, arch, sub.ID, model.SubmittalStatusRejected, "Missing laps")
	require.NoError(t, err)
	assert.Equal(t, []sentNotice{{pm.ID, "warning", "SUB-0001 Rebar shop drawings moved to rejected"}}, notes.take())
}
