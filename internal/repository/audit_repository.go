package repository

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"gcpanel/internal/model"
)

const auditBatchSize = 100

// AuditRepository stores audit trail entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	CreateBatch(ctx context.Context, entries []model.AuditLog) error
	ListForEntity(ctx context.Context, entity string, entityID uint) ([]model.AuditLog, error)
	Recent(ctx context.Context, n int) ([]model.AuditLog, error)
}

type auditRepository struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewAuditRepository builds a GORM-backed repository.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db, log: slog.Default().With(slog.String("entity", "audit_logs"))}
}

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	return translate(r.log, "audit_logs", "create", 0, r.db.WithContext(ctx).Create(entry).Error)
}

// CreateBatch inserts entries in chunks.
func (r *auditRepository) CreateBatch(ctx context.Context, entries []model.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).CreateInBatches(entries, auditBatchSize).Error
	return translate(r.log, "audit_logs", "create_batch", 0, err)
}

func (r *auditRepository) ListForEntity(ctx context.Context, entity string, entityID uint) ([]model.AuditLog, error) {
	var out []model.AuditLog
	err := r.db.WithContext(ctx).
		Where("entity = ? AND entity_id = ?", entity, entityID).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	return out, translate(r.log, "audit_logs", "list_for_entity", entityID, err)
}

func (r *auditRepository) Recent(ctx context.Context, n int) ([]model.AuditLog, error) {
	if n <= 0 {
		n = 50
	}
	var out []model.AuditLog
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(n).Find(&out).Error
	return out, translate(r.log, "audit_logs", "recent", 0, err)
}
