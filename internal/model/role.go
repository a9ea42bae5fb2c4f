package model

// Bootstrap role names.
const (
	RoleAdmin          = "admin"
	RoleProjectManager = "project_manager"
	RoleEngineer       = "engineer"
	RoleField          = "field"
	RoleViewer         = "viewer"
)

// DefaultRoles are created at startup with their descriptions.
var DefaultRoles = []Role{
	{Name: RoleAdmin, Description: "Full system access"},
	{Name: RoleProjectManager, Description: "Manages projects, teams and documents"},
	{Name: RoleEngineer, Description: "Creates and updates technical documents"},
	{Name: RoleField, Description: "Field staff reporting from site"},
	{Name: RoleViewer, Description: "Read-only access"},
}

// Role groups permissions granted to users.
type Role struct {
	Base
	Name        string `json:"name" gorm:"uniqueIndex;size:64;not null"`
	Description string `json:"description,omitempty" gorm:"size:255"`
}

func (Role) TableName() string { return "roles" }
