package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gcpanel/internal/model"
	"gcpanel/internal/workflow"
)

// DocumentRepository covers project-scoped documents with a status lifecycle
// and attachments: RFIs and submittals.
type DocumentRepository[T model.Entity, S ~string] interface {
	Store[T]
	GetByNumber(ctx context.Context, projectID uint, number string) (*T, error)
	ListByStatus(ctx context.Context, status S) ([]T, error)
	ListByProject(ctx context.Context, projectID uint) ([]T, error)
	ListForUser(ctx context.Context, userID uint) ([]T, error)
	ListOverdue(ctx context.Context, now time.Time) ([]T, error)
	CountByStatus(ctx context.Context) (map[S]int64, error)
	NextNumber(ctx context.Context, projectID uint) (string, error)
	UpdateStatus(ctx context.Context, id uint, status S, now time.Time) (*T, error)
	Machine() *workflow.Machine[T, S]

	AddAttachment(ctx context.Context, ownerID uint, attachment *model.Attachment) error
	Attachments(ctx context.Context, ownerID uint) ([]model.Attachment, error)
	RemoveAttachment(ctx context.Context, ownerID, attachmentID uint) error
}

// RfiRepository persists RFIs.
type RfiRepository = DocumentRepository[model.Rfi, model.RfiStatus]

// SubmittalRepository persists submittals.
type SubmittalRepository = DocumentRepository[model.Submittal, model.SubmittalStatus]

type documentConfig[T model.Entity, S ~string] struct {
	prefix    string
	ownerType string
	machine   *workflow.Machine[T, S]
	// settled statuses are never overdue
	settled []S
	// lifecycle columns only UpdateStatus may write
	guarded []string
}

type documentRepository[T model.Entity, S ~string] struct {
	*Repository[T]
	attachments *Repository[model.Attachment]
	cfg         documentConfig[T, S]
}

// NewRfiRepository builds a GORM-backed RFI repository.
func NewRfiRepository(db *gorm.DB) RfiRepository {
	return newDocumentRepository(db, documentConfig[model.Rfi, model.RfiStatus]{
		prefix:    "RFI",
		ownerType: model.OwnerRfi,
		machine:   workflow.Rfi,
		settled:   []model.RfiStatus{model.RfiStatusAnswered, model.RfiStatusClosed},
		guarded:   []string{"status", "submitted_date", "response_date", "closed_date"},
	})
}

// NewSubmittalRepository builds a GORM-backed submittal repository.
func NewSubmittalRepository(db *gorm.DB) SubmittalRepository {
	return newDocumentRepository(db, documentConfig[model.Submittal, model.SubmittalStatus]{
		prefix:    "SUB",
		ownerType: model.OwnerSubmittal,
		machine:   workflow.Submittal,
		settled: []model.SubmittalStatus{
			model.SubmittalStatusApproved,
			model.SubmittalStatusApprovedAsNoted,
			model.SubmittalStatusRejected,
			model.SubmittalStatusClosed,
		},
		guarded: []string{"status", "submitted_date", "review_date", "closed_date"},
	})
}

func newDocumentRepository[T model.Entity, S ~string](db *gorm.DB, cfg documentConfig[T, S]) *documentRepository[T, S] {
	return &documentRepository[T, S]{
		Repository:  New[T](db, WithGuardedFields(cfg.guarded...)),
		attachments: New[model.Attachment](db),
		cfg:         cfg,
	}
}

func (r *documentRepository[T, S]) Machine() *workflow.Machine[T, S] { return r.cfg.machine }

func (r *documentRepository[T, S]) GetByNumber(ctx context.Context, projectID uint, number string) (*T, error) {
	obj := new(T)
	if err := r.active(ctx).Where("project_id = ? AND number = ?", projectID, number).First(obj).Error; err != nil {
		return nil, r.result("get_by_number", projectID, err)
	}
	return obj, nil
}

func (r *documentRepository[T, S]) ListByStatus(ctx context.Context, status S) ([]T, error) {
	return r.list(ctx, "list_by_status", "status = ?", status)
}

func (r *documentRepository[T, S]) ListByProject(ctx context.Context, projectID uint) ([]T, error) {
	return r.list(ctx, "list_by_project", "project_id = ?", projectID)
}

// ListForUser returns documents assigned to or created by the user.
func (r *documentRepository[T, S]) ListForUser(ctx context.Context, userID uint) ([]T, error) {
	return r.list(ctx, "list_for_user", "(assigned_to_id = ? OR created_by_id = ?)", userID, userID)
}

// ListOverdue returns unsettled documents whose due date is before now.
func (r *documentRepository[T, S]) ListOverdue(ctx context.Context, now time.Time) ([]T, error) {
	return r.list(ctx, "list_overdue", "due_date IS NOT NULL AND due_date < ? AND status NOT IN ?", now, r.cfg.settled)
}

func (r *documentRepository[T, S]) list(ctx context.Context, op, query string, args ...any) ([]T, error) {
	var out []T
	err := r.active(ctx).Where(query, args...).Order("id").Find(&out).Error
	return out, r.result(op, 0, err)
}

func (r *documentRepository[T, S]) CountByStatus(ctx context.Context) (map[S]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.active(ctx).Model(new(T)).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, r.result("count_by_status", 0, err)
	}
	out := make(map[S]int64, len(rows))
	for _, row := range rows {
		out[S(row.Status)] = row.Count
	}
	return out, nil
}

// NextNumber returns the next free document number in the project, e.g. RFI-0007.
// Soft-deleted documents keep their numbers.
func (r *documentRepository[T, S]) NextNumber(ctx context.Context, projectID uint) (string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).Model(new(T)).Where("project_id = ?", projectID).Pluck("number", &numbers).Error
	if err != nil {
		return "", r.result("next_number", projectID, err)
	}
	highest := 0
	for _, n := range numbers {
		seq, err := strconv.Atoi(strings.TrimPrefix(n, r.cfg.prefix+"-"))
		if err == nil && seq > highest {
			highest = seq
		}
	}
	return fmt.Sprintf("%s-%04d", r.cfg.prefix, highest+1), nil
}

// UpdateStatus moves the document through its lifecycle and stamps dates.
// Re-applying the current status changes nothing.
func (r *documentRepository[T, S]) UpdateStatus(ctx context.Context, id uint, status S, now time.Time) (*T, error) {
	obj := new(T)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND is_active = ?", id, true).First(obj).Error; err != nil {
			return err
		}
		changed, err := r.cfg.machine.Apply(obj, status, now)
		if err != nil || !changed {
			return err
		}
		return tx.Omit(clause.Associations).Save(obj).Error
	})
	if err != nil {
		return nil, r.result("update_status", id, err)
	}
	return obj, r.result("update_status", id, nil)
}

func (r *documentRepository[T, S]) AddAttachment(ctx context.Context, ownerID uint, attachment *model.Attachment) error {
	exists, err := r.Exists(ctx, ownerID)
	if err != nil {
		return err
	}
	if !exists {
		return r.result("add_attachment", ownerID, gorm.ErrRecordNotFound)
	}
	attachment.OwnerID = ownerID
	attachment.OwnerType = r.cfg.ownerType
	return r.attachments.Insert(ctx, attachment)
}

func (r *documentRepository[T, S]) Attachments(ctx context.Context, ownerID uint) ([]model.Attachment, error) {
	var out []model.Attachment
	err := r.attachments.active(ctx).
		Where("owner_type = ? AND owner_id = ?", r.cfg.ownerType, ownerID).
		Order("id").Find(&out).Error
	return out, r.attachments.result("list", ownerID, err)
}

// RemoveAttachment deletes an attachment owned by ownerID.
func (r *documentRepository[T, S]) RemoveAttachment(ctx context.Context, ownerID, attachmentID uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_type = ? AND owner_id = ?", attachmentID, r.cfg.ownerType, ownerID).
		Delete(&model.Attachment{})
	return r.attachments.affected("remove", attachmentID, res)
}
