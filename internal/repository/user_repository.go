package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/model"
)

// UserRepository defines user persistence operations.
// Lookups return active users with their roles loaded.
type UserRepository interface {
	Store[model.User]
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsernameOrEmail(ctx context.Context, login string) (*model.User, error)
	WithRoles(ctx context.Context, id uint) (*model.User, error)
	ListByStatus(ctx context.Context, status model.UserStatus) ([]model.User, error)
	AssignRole(ctx context.Context, userID uint, roleName string) error
	RevokeRole(ctx context.Context, userID uint, roleName string) error
	RecordFailedLogin(ctx context.Context, id uint) error
	RecordSuccessfulLogin(ctx context.Context, id uint, at time.Time) error
	SetPassword(ctx context.Context, id uint, hash string) error
	SetStatus(ctx context.Context, id uint, status model.UserStatus) error
}

type userRepository struct {
	*Repository[model.User]
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{Repository: New[model.User](db)}
}

func (r *userRepository) withRoles(ctx context.Context) *gorm.DB {
	return r.active(ctx).Preload("Roles", "is_active = ?", true)
}

func (r *userRepository) findOne(ctx context.Context, op string, query string, args ...any) (*model.User, error) {
	var user model.User
	if err := r.withRoles(ctx).Where(query, args...).First(&user).Error; err != nil {
		return nil, r.result(op, 0, err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "get_by_username", "username = ?", username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "get_by_email", "email = ?", email)
}

func (r *userRepository) GetByUsernameOrEmail(ctx context.Context, login string) (*model.User, error) {
	return r.findOne(ctx, "get_by_login", "(username = ? OR email = ?)", login, login)
}

func (r *userRepository) WithRoles(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.withRoles(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, r.result("get_with_roles", id, err)
	}
	return &user, nil
}

func (r *userRepository) ListByStatus(ctx context.Context, status model.UserStatus) ([]model.User, error) {
	var users []model.User
	err := r.withRoles(ctx).Where("status = ?", status).Order("id").Find(&users).Error
	return users, r.result("list_by_status", 0, err)
}

// AssignRole grants roleName to the user. Granting a held role is a no-op.
func (r *userRepository) AssignRole(ctx context.Context, userID uint, roleName string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, role, err := loadUserAndRole(tx, userID, roleName)
		if err != nil {
			return err
		}
		return tx.Model(user).Association("Roles").Append(role)
	})
	return r.result("assign_role", userID, err)
}

func (r *userRepository) RevokeRole(ctx context.Context, userID uint, roleName string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, role, err := loadUserAndRole(tx, userID, roleName)
		if err != nil {
			return err
		}
		return tx.Model(user).Association("Roles").Delete(role)
	})
	return r.result("revoke_role", userID, err)
}

func loadUserAndRole(tx *gorm.DB, userID uint, roleName string) (*model.User, *model.Role, error) {
	var user model.User
	if err := tx.Where("id = ? AND is_active = ?", userID, true).First(&user).Error; err != nil {
		return nil, nil, err
	}
	var role model.Role
	if err := tx.Where("name = ? AND is_active = ?", roleName, true).First(&role).Error; err != nil {
		return nil, nil, err
	}
	return &user, &role, nil
}

// RecordFailedLogin increments the failed-attempt counter.
func (r *userRepository) RecordFailedLogin(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("failed_login_attempts", gorm.Expr("failed_login_attempts + ?", 1))
	return r.affected("record_failed_login", id, res)
}

// RecordSuccessfulLogin resets the failed-attempt counter and stamps the login time.
func (r *userRepository) RecordSuccessfulLogin(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"failed_login_attempts": 0, "last_login_at": at})
	return r.affected("record_login", id, res)
}

func (r *userRepository) SetPassword(ctx context.Context, id uint, hash string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("password_hash", hash)
	return r.affected("set_password", id, res)
}

func (r *userRepository) SetStatus(ctx context.Context, id uint, status model.UserStatus) error {
	if !status.Valid() {
		return r.result("set_status", id, apperrors.Validation("unknown user status %q", status))
	}
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("status", status)
	return r.affected("set_status", id, res)
}
