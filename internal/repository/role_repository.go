package repository

import (
	"context"

	"gorm.io/gorm"

	"gcpanel/internal/model"
)

// RoleRepository defines role persistence operations.
type RoleRepository interface {
	Store[model.Role]
	GetByName(ctx context.Context, name string) (*model.Role, error)
	Ensure(ctx context.Context, name, description string) (*model.Role, error)
}

type roleRepository struct {
	*Repository[model.Role]
}

// NewRoleRepository builds a GORM-backed repository.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{Repository: New[model.Role](db)}
}

func (r *roleRepository) GetByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := r.active(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, r.result("get_by_name", 0, err)
	}
	return &role, nil
}

// Ensure returns the named role, creating or re-activating it as needed.
func (r *roleRepository) Ensure(ctx context.Context, name, description string) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(model.Role{Name: name}).
			Attrs(model.Role{Description: description}).
			FirstOrCreate(&role).Error; err != nil {
			return err
		}
		if role.IsActive {
			return nil
		}
		role.IsActive = true
		return tx.Model(&role).Update("is_active", true).Error
	})
	if err != nil {
		return nil, r.result("ensure", 0, err)
	}
	return &role, r.result("ensure", role.ID, nil)
}
