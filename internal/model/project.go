package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProjectStatus is free-form: any known value can be set from any other.
type ProjectStatus string

const (
	ProjectStatusPlanning        ProjectStatus = "planning"
	ProjectStatusPreconstruction ProjectStatus = "preconstruction"
	ProjectStatusConstruction    ProjectStatus = "construction"
	ProjectStatusCloseout        ProjectStatus = "closeout"
	ProjectStatusComplete        ProjectStatus = "complete"
	ProjectStatusOnHold          ProjectStatus = "on_hold"
)

// ProjectStatuses lists every known status in lifecycle order.
var ProjectStatuses = []ProjectStatus{
	ProjectStatusPlanning,
	ProjectStatusPreconstruction,
	ProjectStatusConstruction,
	ProjectStatusCloseout,
	ProjectStatusComplete,
	ProjectStatusOnHold,
}

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	for _, known := range ProjectStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Project represents a construction project.
type Project struct {
	Base
	Name        string          `json:"name" gorm:"size:255;not null"`
	Code        string          `json:"code" gorm:"uniqueIndex;size:32;not null"`
	Description string          `json:"description,omitempty" gorm:"type:text"`
	Status      ProjectStatus   `json:"status" gorm:"type:varchar(20);not null;default:'planning';index"`
	StartDate   *time.Time      `json:"start_date,omitempty"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	Budget      decimal.Decimal `json:"budget" gorm:"type:decimal(20,2);not null;default:0"`
	Location    string          `json:"location,omitempty" gorm:"size:255"`

	// Relations
	TeamMembers []User      `json:"team_members,omitempty" gorm:"many2many:project_team_members;"`
	Milestones  []Milestone `json:"milestones,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.Status == "" {
		p.Status = ProjectStatusPlanning
	}
	return p.Base.BeforeCreate(tx)
}

// DaysRemaining returns days until the end date, or 0 when no end date is set.
func (p *Project) DaysRemaining(now time.Time) int {
	if p.EndDate == nil {
		return 0
	}
	return daysBetween(now, *p.EndDate)
}

// IsOverdue reports whether the end date has passed on an unfinished project.
func (p *Project) IsOverdue(now time.Time) bool {
	return p.EndDate != nil && now.After(*p.EndDate) && p.Status != ProjectStatusComplete
}

// DurationDays is the planned length of the project.
func (p *Project) DurationDays() int {
	if p.StartDate == nil || p.EndDate == nil {
		return 0
	}
	return daysBetween(*p.StartDate, *p.EndDate)
}

// Milestone is a dated checkpoint inside a project.
type Milestone struct {
	Base
	ProjectID   uint       `json:"project_id" gorm:"not null;index"`
	Name        string     `json:"name" gorm:"size:255;not null"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (Milestone) TableName() string { return "milestones" }

func (m *Milestone) IsComplete() bool { return m.CompletedAt != nil }

func (m *Milestone) IsOverdue(now time.Time) bool {
	return !m.IsComplete() && m.DueDate != nil && now.After(*m.DueDate)
}
