package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RfiStatus is driven by the RFI lifecycle in internal/workflow.
type RfiStatus string

const (
	RfiStatusDraft       RfiStatus = "draft"
	RfiStatusSubmitted   RfiStatus = "submitted"
	RfiStatusUnderReview RfiStatus = "under_review"
	RfiStatusAnswered    RfiStatus = "answered"
	RfiStatusClosed      RfiStatus = "closed"
)

// Priority applies to RFIs.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rfi is a request for information raised on a project.
type Rfi struct {
	Base
	ProjectID          uint            `json:"project_id" gorm:"not null;uniqueIndex:idx_rfi_project_number"`
	Number             string          `json:"number" gorm:"size:32;not null;uniqueIndex:idx_rfi_project_number"`
	Subject            string          `json:"subject" gorm:"size:255;not null"`
	Question           string          `json:"question" gorm:"type:text"`
	Response           string          `json:"response,omitempty" gorm:"type:text"`
	Status             RfiStatus       `json:"status" gorm:"type:varchar(20);not null;default:'draft';index"`
	Priority           Priority        `json:"priority" gorm:"type:varchar(20);not null;default:'medium'"`
	Category           string          `json:"category,omitempty" gorm:"size:100"`
	Location           string          `json:"location,omitempty" gorm:"size:255"`
	SpecSection        string          `json:"spec_section,omitempty" gorm:"size:64"`
	CostImpact         decimal.Decimal `json:"cost_impact" gorm:"type:decimal(20,2);not null;default:0"`
	ScheduleImpactDays int             `json:"schedule_impact_days"`
	SubmittedDate      *time.Time      `json:"submitted_date,omitempty"`
	DueDate            *time.Time      `json:"due_date,omitempty" gorm:"index"`
	ResponseDate       *time.Time      `json:"response_date,omitempty"`
	ClosedDate         *time.Time      `json:"closed_date,omitempty"`
	CreatedByID        *uint           `json:"created_by_id,omitempty" gorm:"index"`
	AssignedToID       *uint           `json:"assigned_to_id,omitempty" gorm:"index"`

	// Relations
	Attachments []Attachment `json:"attachments,omitempty" gorm:"polymorphic:Owner;polymorphicValue:rfis"`
}

func (Rfi) TableName() string { return "rfis" }

func (r Rfi) Parties() (createdBy, assignedTo *uint) { return r.CreatedByID, r.AssignedToID }

func (r Rfi) Label() string { return r.Number + " " + r.Subject }

// BeforeCreate fills the initial status and priority.
func (r *Rfi) BeforeCreate(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = RfiStatusDraft
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	return r.Base.BeforeCreate(tx)
}

// IsOverdue reports whether an unanswered RFI is past its due date.
func (r *Rfi) IsOverdue(now time.Time) bool {
	if r.DueDate == nil || r.Status == RfiStatusAnswered || r.Status == RfiStatusClosed {
		return false
	}
	return now.After(*r.DueDate)
}

// DaysOpen counts days from submission (or creation) until close or now.
func (r *Rfi) DaysOpen(now time.Time) int {
	start := r.CreatedAt
	if r.SubmittedDate != nil {
		start = *r.SubmittedDate
	}
	end := now
	if r.ClosedDate != nil {
		end = *r.ClosedDate
	}
	return daysBetween(start, end)
}
