package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// UserStatus gates login. Any status may be set directly.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusPending   UserStatus = "pending"
)

// Valid reports whether s is a known user status.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended, UserStatusPending:
		return true
	}
	return false
}

// User represents an authenticated user in the system.
type User struct {
	Base
	Username            string     `json:"username" gorm:"uniqueIndex;size:64;not null"`
	Email               string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash        string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	FirstName           string     `json:"first_name" gorm:"size:100"`
	LastName            string     `json:"last_name" gorm:"size:100"`
	Status              UserStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	FailedLoginAttempts int        `json:"failed_login_attempts" gorm:"not null;default:0"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`

	// Relations
	Roles    []Role    `json:"roles,omitempty" gorm:"many2many:user_roles;"`
	Projects []Project `json:"-" gorm:"many2many:project_team_members;"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return u.Base.BeforeCreate(tx)
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// RoleNames lists the names of the loaded roles.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// CanLogin reports whether the account is both active and in active status.
func (u *User) CanLogin() bool {
	return u.IsActive && u.Status == UserStatusActive
}
