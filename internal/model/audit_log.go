package model

import "time"

// AuditLog records a mutation performed by a user.
// Entries are written asynchronously and never updated.
type AuditLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    *uint     `json:"user_id,omitempty" gorm:"index"`
	Action    string    `json:"action" gorm:"size:64;not null"`
	Entity    string    `json:"entity" gorm:"size:64;not null;index:idx_audit_entity"`
	EntityID  uint      `json:"entity_id" gorm:"index:idx_audit_entity"`
	Details   string    `json:"details,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// All lists every migrated model in dependency order.
func All() []any {
	return []any{
		&Role{},
		&User{},
		&Project{},
		&Milestone{},
		&Rfi{},
		&Submittal{},
		&Attachment{},
		&AppConfig{},
		&AuditLog{},
	}
}
