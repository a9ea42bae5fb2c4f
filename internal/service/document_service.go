package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/model"
	"gcpanel/internal/repository"
	"gcpanel/internal/workflow"
)

const rfiDefaultResponseWindow = 7 * 24 * time.Hour

// Transitions lists where a document can move from its current status.
type Transitions[S ~string] struct {
	Current S   `json:"current"`
	Allowed []S `json:"allowed"`
}

// Notifier delivers a message to a user's session.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uint, level, message string) error
}

// AttachmentInput describes an uploaded file.
type AttachmentInput struct {
	Filename string
	Size     int64
	MimeType string
}

// DocumentService is the shared surface of RFIs and submittals.
type DocumentService[T model.Entity, S ~string] interface {
	List(ctx context.Context, skip, limit int) ([]T, error)
	ListByProject(ctx context.Context, projectID uint) ([]T, error)
	ListForUser(ctx context.Context, userID uint) ([]T, error)
	ListOverdue(ctx context.Context) ([]T, error)
	CountByStatus(ctx context.Context) (map[S]int64, error)
	Get(ctx context.Context, id uint) (*T, error)
	Create(ctx context.Context, actor *model.User, projectID uint, fields map[string]any) (*T, error)
	Update(ctx context.Context, actor *model.User, id uint, fields map[string]any) (*T, error)
	Delete(ctx context.Context, actor *model.User, id uint) error
	UpdateStatus(ctx context.Context, actor *model.User, id uint, status S) (*T, error)
	Transitions(ctx context.Context, id uint) (*Transitions[S], error)
	AddAttachment(ctx context.Context, actor *model.User, id uint, in AttachmentInput) (*model.Attachment, error)
	Attachments(ctx context.Context, id uint) ([]model.Attachment, error)
	RemoveAttachment(ctx context.Context, actor *model.User, id, attachmentID uint) error
}

type documentService[T model.Entity, S ~string] struct {
	repo     repository.DocumentRepository[T, S]
	projects repository.ProjectRepository
	audit    AuditService
	notifier Notifier
	entity   string
	// defaults fills missing fields on create
	defaults func(fields map[string]any, now time.Time)
	now      func() time.Time
}

func newDocumentService[T model.Entity, S ~string](
	repo repository.DocumentRepository[T, S],
	projects repository.ProjectRepository,
	audit AuditService,
	notifier Notifier,
	defaults func(map[string]any, time.Time),
) *documentService[T, S] {
	var zero T
	return &documentService[T, S]{
		repo:     repo,
		projects: projects,
		audit:    audit,
		notifier: notifier,
		entity:   zero.TableName(),
		defaults: defaults,
		now:      time.Now,
	}
}

func (s *documentService[T, S]) List(ctx context.Context, skip, limit int) ([]T, error) {
	return s.repo.GetAll(ctx, skip, limit)
}

func (s *documentService[T, S]) ListByProject(ctx context.Context, projectID uint) ([]T, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListByProject(ctx, projectID)
}

func (s *documentService[T, S]) ListForUser(ctx context.Context, userID uint) ([]T, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *documentService[T, S]) ListOverdue(ctx context.Context) ([]T, error) {
	return s.repo.ListOverdue(ctx, s.now())
}

func (s *documentService[T, S]) CountByStatus(ctx context.Context) (map[S]int64, error) {
	return s.repo.CountByStatus(ctx)
}

func (s *documentService[T, S]) Get(ctx context.Context, id uint) (*T, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *documentService[T, S]) requireProject(ctx context.Context, projectID uint) error {
	ok, err := s.projects.Exists(ctx, projectID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("project %d: %w", projectID, apperrors.ErrNotFound)
	}
	return nil
}

// Create numbers the document within its project unless a number is given.
func (s *documentService[T, S]) Create(ctx context.Context, actor *model.User, projectID uint, fields map[string]any) (*T, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}

	fields = maps.Clone(fields)
	if fields == nil {
		fields = map[string]any{}
	}
	fields["project_id"] = projectID
	if n, _ := fields["number"].(string); strings.TrimSpace(n) == "" {
		number, err := s.repo.NextNumber(ctx, projectID)
		if err != nil {
			return nil, err
		}
		fields["number"] = number
	}
	if _, ok := fields["created_by_id"]; !ok && actor != nil {
		fields["created_by_id"] = actor.ID
	}
	if s.defaults != nil {
		s.defaults(fields, s.now())
	}

	doc, err := s.repo.Create(ctx, fields)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, ActionCreate, s.entity, (*doc).GetID(), fmt.Sprint(fields["number"]))
	s.notifyAssignee(ctx, actor, doc)
	return doc, nil
}

func (s *documentService[T, S]) Update(ctx context.Context, actor *model.User, id uint, fields map[string]any) (*T, error) {
	doc, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, ActionUpdate, s.entity, id, joinKeys(fields))
	if _, ok := fields["assigned_to_id"]; ok {
		s.notifyAssignee(ctx, actor, doc)
	}
	return doc, nil
}

func (s *documentService[T, S]) Delete(ctx context.Context, actor *model.User, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, ActionDelete, s.entity, id, "")
	return nil
}

// UpdateStatus applies a lifecycle transition.
func (s *documentService[T, S]) UpdateStatus(ctx context.Context, actor *model.User, id uint, status S) (*T, error) {
	doc, err := s.repo.UpdateStatus(ctx, id, status, s.now())
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, ActionStatus, s.entity, id, string(status))
	if routed, ok := any(*doc).(model.Routed); ok {
		createdBy, assignedTo := routed.Parties()
		s.notify(ctx, actor, statusLevel(string(status)),
			fmt.Sprintf("%s moved to %s", routed.Label(), status), createdBy, assignedTo)
	}
	return doc, nil
}

func (s *documentService[T, S]) Transitions(ctx context.Context, id uint) (*Transitions[S], error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m := s.repo.Machine()
	current := m.Status(doc)
	return &Transitions[S]{Current: current, Allowed: m.Allowed(current)}, nil
}

// AddAttachment records file metadata under a unique storage path.
func (s *documentService[T, S]) AddAttachment(ctx context.Context, actor *model.User, id uint, in AttachmentInput) (*model.Attachment, error) {
	name := path.Base(strings.TrimSpace(in.Filename))
	if name == "" || name == "." || name == "/" {
		return nil, apperrors.Validation("filename is required")
	}
	if in.Size < 0 {
		return nil, apperrors.Validation("size must not be negative")
	}

	att := &model.Attachment{
		Filename:    name,
		StoragePath: path.Join(s.entity, fmt.Sprint(id), uuid.NewString()+"-"+name),
		Size:        in.Size,
		MimeType:    in.MimeType,
	}
	if actor != nil {
		uid := actor.ID
		att.UploadedByID = &uid
	}
	if err := s.repo.AddAttachment(ctx, id, att); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, ActionAttach, s.entity, id, name)
	return att, nil
}

func (s *documentService[T, S]) Attachments(ctx context.Context, id uint) ([]model.Attachment, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Attachments(ctx, id)
}

func (s *documentService[T, S]) RemoveAttachment(ctx context.Context, actor *model.User, id, attachmentID uint) error {
	if err := s.repo.RemoveAttachment(ctx, id, attachmentID); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, ActionDelete, "attachments", attachmentID, "")
	return nil
}

// RfiService manages requests for information.
type RfiService interface {
	DocumentService[model.Rfi, model.RfiStatus]
	// Respond stores the answer and moves the RFI to answered.
	Respond(ctx context.Context, actor *model.User, id uint, response string) (*model.Rfi, error)
}

type rfiService struct {
	*documentService[model.Rfi, model.RfiStatus]
}

// NewRfiService builds an RfiService. New RFIs are due a week after creation
// unless a due date is given.
func NewRfiService(repo repository.RfiRepository, projects repository.ProjectRepository, audit AuditService, notifier Notifier) RfiService {
	return &rfiService{newDocumentService(repo, projects, audit, notifier, func(fields map[string]any, now time.Time) {
		if _, ok := fields["due_date"]; !ok {
			fields["due_date"] = now.Add(rfiDefaultResponseWindow).UTC()
		}
	})}
}

func (s *rfiService) Respond(ctx context.Context, actor *model.User, id uint, response string) (*model.Rfi, error) {
	if strings.TrimSpace(response) == "" {
		return nil, apperrors.Validation("response is required")
	}
	rfi, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.repo.Machine().CanTransition(rfi.Status, model.RfiStatusAnswered) {
		return nil, s.transitionError(rfi.Status, model.RfiStatusAnswered)
	}

	fields := map[string]any{"response": response}
	if _, err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.UpdateStatus(ctx, actor, id, model.RfiStatusAnswered)
}

// SubmittalService manages submittals through design-team review.
type SubmittalService interface {
	DocumentService[model.Submittal, model.SubmittalStatus]
	// Review records a reviewer decision with optional comments.
	Review(ctx context.Context, actor *model.User, id uint, decision model.SubmittalStatus, comments string) (*model.Submittal, error)
}

// ReviewDecisions are the statuses a reviewer may choose.
var ReviewDecisions = []model.SubmittalStatus{
	model.SubmittalStatusApproved,
	model.SubmittalStatusApprovedAsNoted,
	model.SubmittalStatusRejected,
	model.SubmittalStatusReviseAndResubmit,
}

type submittalService struct {
	*documentService[model.Submittal, model.SubmittalStatus]
}

// NewSubmittalService builds a SubmittalService.
func NewSubmittalService(repo repository.SubmittalRepository, projects repository.ProjectRepository, audit AuditService, notifier Notifier) SubmittalService {
	return &submittalService{newDocumentService(repo, projects, audit, notifier, nil)}
}

// UpdateStatus bumps the revision when a returned submittal is resubmitted.
func (s *submittalService) UpdateStatus(ctx context.Context, actor *model.User, id uint, status model.SubmittalStatus) (*model.Submittal, error) {
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sub, err := s.documentService.UpdateStatus(ctx, actor, id, status)
	if err != nil {
		return nil, err
	}
	if before.Status == model.SubmittalStatusReviseAndResubmit && status == model.SubmittalStatusSubmitted {
		return s.repo.Update(ctx, id, map[string]any{"revision": sub.Revision + 1})
	}
	return sub, nil
}

func (s *submittalService) Review(ctx context.Context, actor *model.User, id uint, decision model.SubmittalStatus, comments string) (*model.Submittal, error) {
	if !slices.Contains(ReviewDecisions, decision) {
		return nil, apperrors.Validation("%q is not a review decision", decision)
	}
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.repo.Machine().CanTransition(sub.Status, decision) {
		return nil, s.transitionError(sub.Status, decision)
	}
	if strings.TrimSpace(comments) != "" {
		if _, err := s.repo.Update(ctx, id, map[string]any{"comments": comments}); err != nil {
			return nil, err
		}
	}
	return s.UpdateStatus(ctx, actor, id, decision)
}

func (s *documentService[T, S]) transitionError(from, to S) error {
	return &workflow.TransitionError{Entity: s.repo.Machine().Entity(), From: string(from), To: string(to)}
}

func (s *documentService[T, S]) notifyAssignee(ctx context.Context, actor *model.User, doc *T) {
	routed, ok := any(*doc).(model.Routed)
	if !ok {
		return
	}
	_, assignedTo := routed.Parties()
	s.notify(ctx, actor, "info", "You were assigned "+routed.Label(), assignedTo)
}

// notify tells each distinct recipient other than the actor. Delivery
// failures are logged and never fail the operation.
func (s *documentService[T, S]) notify(ctx context.Context, actor *model.User, level, message string, recipients ...*uint) {
	if s.notifier == nil {
		return
	}
	seen := map[uint]bool{}
	for _, id := range recipients {
		if id == nil || *id == 0 || seen[*id] || (actor != nil && actor.ID == *id) {
			continue
		}
		seen[*id] = true
		if err := s.notifier.NotifyUser(ctx, *id, level, message); err != nil {
			slog.Warn("notification not delivered",
				slog.String("entity", s.entity),
				slog.Uint64("user_id", uint64(*id)),
				slog.String("error", err.Error()))
		}
	}
}

func statusLevel(status string) string {
	switch status {
	case string(model.SubmittalStatusRejected), string(model.SubmittalStatusReviseAndResubmit):
		return "warning"
	case string(model.SubmittalStatusApproved), string(model.SubmittalStatusApprovedAsNoted), string(model.RfiStatusAnswered):
		return "success"
	}
	return "info"
}

func joinKeys(fields map[string]any) string {
	return strings.Join(slices.Sorted(maps.Keys(fields)), ",")
}
