package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/metrics"
	"gcpanel/internal/model"
)

// DefaultPageSize is used when a list call passes a non-positive limit.
const DefaultPageSize = 100

var schemaCache sync.Map

// Store is the CRUD contract shared by every entity repository.
// Reads only see active rows unless the method says otherwise.
type Store[T model.Entity] interface {
	GetAll(ctx context.Context, skip, limit int) ([]T, error)
	GetByID(ctx context.Context, id uint) (*T, error)
	Create(ctx context.Context, fields map[string]any) (*T, error)
	Insert(ctx context.Context, obj *T) error
	Update(ctx context.Context, id uint, fields map[string]any) (*T, error)
	Delete(ctx context.Context, id uint) error
	HardDelete(ctx context.Context, id uint) error
	Restore(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
	Exists(ctx context.Context, id uint) (bool, error)
	FindUnscoped(ctx context.Context, id uint) (*T, error)
	Search(ctx context.Context, term string, columns ...string) ([]T, error)
	FilterBy(ctx context.Context, column string, value any) ([]T, error)
	Recent(ctx context.Context, n int) ([]T, error)
}

// Option configures a Repository.
type Option func(*options)

type options struct {
	guarded []string
}

// WithGuardedFields marks columns that only dedicated methods may write.
// Create rejects them and Update drops them.
func WithGuardedFields(columns ...string) Option {
	return func(o *options) { o.guarded = append(o.guarded, columns...) }
}

// Repository implements Store for any entity embedding model.Base.
type Repository[T model.Entity] struct {
	db      *gorm.DB
	entity  string
	schema  *schema.Schema
	guarded map[string]struct{}
	log     *slog.Logger
}

// New creates a repository for T. It panics if T cannot be parsed as a GORM model.
func New[T model.Entity](db *gorm.DB, opts ...Option) *Repository[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sch, err := schema.Parse(new(T), &schemaCache, db.NamingStrategy)
	if err != nil {
		panic(fmt.Sprintf("repository: parse %T: %v", *new(T), err))
	}

	var zero T
	r := &Repository[T]{
		db:      db,
		entity:  zero.TableName(),
		schema:  sch,
		guarded: make(map[string]struct{}, len(o.guarded)),
		log:     slog.Default().With(slog.String("entity", zero.TableName())),
	}
	for _, col := range o.guarded {
		r.guarded[col] = struct{}{}
	}
	return r
}

// Entity returns the table name the repository manages.
func (r *Repository[T]) Entity() string { return r.entity }

// GetAll lists active records ordered by primary key.
func (r *Repository[T]) GetAll(ctx context.Context, skip, limit int) ([]T, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	var out []T
	err := r.active(ctx).Order("id").Offset(skip).Limit(limit).Find(&out).Error
	return out, r.result("get_all", 0, err)
}

// GetByID returns the active record with id.
func (r *Repository[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	obj := new(T)
	if err := r.active(ctx).Where("id = ?", id).First(obj).Error; err != nil {
		return nil, r.result("get", id, err)
	}
	return obj, r.result("get", id, nil)
}

// Create builds a record from fields and persists it.
// Keys may be column or Go field names; unknown keys fail validation.
func (r *Repository[T]) Create(ctx context.Context, fields map[string]any) (*T, error) {
	obj := new(T)
	if _, err := r.apply(obj, fields, true); err != nil {
		return nil, r.result("create", 0, err)
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(obj).Error; err != nil {
		return nil, r.result("create", 0, err)
	}
	return obj, r.result("create", (*obj).GetID(), nil)
}

// Insert persists a fully built record. Associations are not written.
func (r *Repository[T]) Insert(ctx context.Context, obj *T) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(obj).Error
	return r.result("insert", (*obj).GetID(), err)
}

// Update applies the known keys of fields to the active record with id.
// Unknown, guarded and identity keys are dropped.
func (r *Repository[T]) Update(ctx context.Context, id uint, fields map[string]any) (*T, error) {
	obj := new(T)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND is_active = ?", id, true).First(obj).Error; err != nil {
			return err
		}
		columns, err := r.apply(obj, fields, false)
		if err != nil || len(columns) == 0 {
			return err
		}
		return tx.Model(obj).Select(columns).Updates(obj).Error
	})
	if err != nil {
		return nil, r.result("update", id, err)
	}
	return obj, r.result("update", id, nil)
}

// Delete soft-deletes the active record with id.
func (r *Repository[T]) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(new(T)).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	return r.affected("delete", id, res)
}

// HardDelete physically removes the record with id whether or not it is active.
// Owned associations (attachments, join rows, milestones) go with it.
func (r *Repository[T]) HardDelete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		obj := new(T)
		if err := tx.Where("id = ?", id).First(obj).Error; err != nil {
			return err
		}
		return tx.Select(clause.Associations).Delete(obj).Error
	})
	return r.result("hard_delete", id, err)
}

// Restore re-activates a soft-deleted record.
func (r *Repository[T]) Restore(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(new(T)).
		Where("id = ? AND is_active = ?", id, false).
		Update("is_active", true)
	return r.affected("restore", id, res)
}

// Count returns the number of active records.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.active(ctx).Model(new(T)).Count(&n).Error
	return n, r.result("count", 0, err)
}

// Exists reports whether an active record with id exists.
func (r *Repository[T]) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.active(ctx).Model(new(T)).Where("id = ?", id).Count(&n).Error
	return n > 0, r.result("exists", id, err)
}

// FindUnscoped loads a record regardless of its active flag.
func (r *Repository[T]) FindUnscoped(ctx context.Context, id uint) (*T, error) {
	obj := new(T)
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(obj).Error; err != nil {
		return nil, r.result("find_unscoped", id, err)
	}
	return obj, r.result("find_unscoped", id, nil)
}

// Search does a case-insensitive substring match of term over text columns.
// With no columns given every text column of the entity is searched.
func (r *Repository[T]) Search(ctx context.Context, term string, columns ...string) ([]T, error) {
	if len(columns) == 0 {
		columns = r.textColumns()
	}

	conds := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	pattern := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	for _, col := range columns {
		f := r.schema.LookUpField(col)
		if f == nil || f.DBName == "" || f.FieldType.Kind() != reflect.String {
			return nil, r.result("search", 0, &apperrors.UnknownFieldError{Entity: r.entity, Field: col})
		}
		conds = append(conds, fmt.Sprintf("LOWER(%s) LIKE ?", f.DBName))
		args = append(args, pattern)
	}
	if len(conds) == 0 {
		return nil, r.result("search", 0, apperrors.Validation("%s has no searchable columns", r.entity))
	}

	var out []T
	err := r.active(ctx).Where("("+strings.Join(conds, " OR ")+")", args...).Order("id").Find(&out).Error
	return out, r.result("search", 0, err)
}

// FilterBy lists active records whose column equals value.
func (r *Repository[T]) FilterBy(ctx context.Context, column string, value any) ([]T, error) {
	f := r.schema.LookUpField(column)
	if f == nil || f.DBName == "" {
		return nil, r.result("filter", 0, &apperrors.UnknownFieldError{Entity: r.entity, Field: column})
	}
	var out []T
	err := r.active(ctx).Where(fmt.Sprintf("%s = ?", f.DBName), value).Order("id").Find(&out).Error
	return out, r.result("filter", 0, err)
}

// Recent returns the n most recently created active records.
func (r *Repository[T]) Recent(ctx context.Context, n int) ([]T, error) {
	if n <= 0 {
		n = 10
	}
	var out []T
	err := r.active(ctx).Order("created_at DESC").Order("id DESC").Limit(n).Find(&out).Error
	return out, r.result("recent", 0, err)
}

// WithTransaction executes fn with a repository bound to one database transaction.
func (r *Repository[T]) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo *Repository[T]) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := *r
		txRepo.db = tx
		return fn(ctx, &txRepo)
	})
}

// affected turns a zero-row update into ErrNotFound.
func (r *Repository[T]) affected(op string, id uint, res *gorm.DB) error {
	if res.Error == nil && res.RowsAffected == 0 {
		return r.result(op, id, gorm.ErrRecordNotFound)
	}
	return r.result(op, id, res.Error)
}

func (r *Repository[T]) active(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Where("is_active = ?", true)
}

// apply copies fields onto obj and returns the columns it touched.
// Values are decoded through the entity's JSON representation so that
// request bodies and typed Go values are handled the same way.
func (r *Repository[T]) apply(obj *T, fields map[string]any, strict bool) ([]string, error) {
	payload := make(map[string]any, len(fields))
	columns := make([]string, 0, len(fields))

	for key, value := range fields {
		f := r.schema.LookUpField(key)
		name, ok := r.writable(f)
		if !ok {
			if strict {
				if f != nil && f.DBName != "" {
					return nil, apperrors.Validation("%s.%s cannot be set directly", r.entity, f.DBName)
				}
				return nil, &apperrors.UnknownFieldError{Entity: r.entity, Field: key}
			}
			r.log.Debug("dropping field on update", slog.String("field", key))
			continue
		}
		payload[name] = value
		columns = append(columns, f.DBName)
	}
	if len(payload) == 0 {
		return nil, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Validation("%s: %v", r.entity, err)
	}
	if err := json.Unmarshal(raw, obj); err != nil {
		return nil, apperrors.Validation("%s: %v", r.entity, err)
	}
	return columns, nil
}

// writable returns the JSON name of f when callers may set it.
func (r *Repository[T]) writable(f *schema.Field) (string, bool) {
	if f == nil || f.DBName == "" || f.PrimaryKey {
		return "", false
	}
	switch f.DBName {
	case "is_active", "created_at", "updated_at":
		return "", false
	}
	if _, ok := r.guarded[f.DBName]; ok {
		return "", false
	}
	name, _, _ := strings.Cut(f.StructField.Tag.Get("json"), ",")
	if name == "-" {
		return "", false
	}
	if name == "" {
		name = f.Name
	}
	return name, true
}

func (r *Repository[T]) textColumns() []string {
	var cols []string
	for _, f := range r.schema.Fields {
		if _, ok := r.writable(f); ok && f.FieldType.Kind() == reflect.String {
			cols = append(cols, f.DBName)
		}
	}
	return cols
}

func (r *Repository[T]) result(op string, id uint, err error) error {
	return translate(r.log, r.entity, op, id, err)
}

// translate maps storage errors onto the repository contract and records metrics:
// nil, ErrNotFound, ErrConflict, domain errors unchanged, or *StorageError.
func translate(log *slog.Logger, entity, op string, id uint, err error) error {
	switch {
	case err == nil:
		metrics.ObserveRepositoryOp(entity, op, metrics.ResultOK)
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, apperrors.ErrNotFound):
		metrics.ObserveRepositoryOp(entity, op, metrics.ResultNotFound)
		if id == 0 {
			return fmt.Errorf("%s: %w", entity, apperrors.ErrNotFound)
		}
		return fmt.Errorf("%s %d: %w", entity, id, apperrors.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		metrics.ObserveRepositoryOp(entity, op, metrics.ResultInvalid)
		return fmt.Errorf("%s: %w", entity, apperrors.ErrConflict)
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrInvalidTransition):
		metrics.ObserveRepositoryOp(entity, op, metrics.ResultInvalid)
		return err
	default:
		metrics.ObserveRepositoryOp(entity, op, metrics.ResultError)
		log.Error("repository operation failed", slog.String("op", op), slog.Uint64("id", uint64(id)), slog.Any("error", err))
		return apperrors.NewStorageError(op, entity, err)
	}
}
