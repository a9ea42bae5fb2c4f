package model

import (
	"time"

	"gorm.io/gorm"
)

// Entity is implemented by every record the generic repository can manage.
type Entity interface {
	GetID() uint
	TableName() string
}

// Routed is a document passed between the user who raised it and the one
// assigned to act on it.
type Routed interface {
	Entity
	Parties() (createdBy, assignedTo *uint)
	Label() string
}

// Base carries the identity and soft-delete flag shared by all entities.
// Rows are never hidden by GORM itself; repositories filter on is_active.
type Base struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetID returns the primary key.
func (b Base) GetID() uint { return b.ID }

// BeforeCreate marks new rows active.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	b.IsActive = true
	return nil
}

// daysBetween counts whole days from a to b, negative when b is before a.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
