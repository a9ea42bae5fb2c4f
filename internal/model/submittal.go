package model

import (
	"time"

	"gorm.io/gorm"
)

// SubmittalStatus is driven by the submittal lifecycle in internal/workflow.
type SubmittalStatus string

const (
	SubmittalStatusDraft             SubmittalStatus = "draft"
	SubmittalStatusSubmitted         SubmittalStatus = "submitted"
	SubmittalStatusUnderReview       SubmittalStatus = "under_review"
	SubmittalStatusApproved          SubmittalStatus = "approved"
	SubmittalStatusApprovedAsNoted   SubmittalStatus = "approved_as_noted"
	SubmittalStatusRejected          SubmittalStatus = "rejected"
	SubmittalStatusReviseAndResubmit SubmittalStatus = "revise_and_resubmit"
	SubmittalStatusClosed            SubmittalStatus = "closed"
)

// Submittal is a document package sent for design-team review.
type Submittal struct {
	Base
	ProjectID     uint            `json:"project_id" gorm:"not null;uniqueIndex:idx_submittal_project_number"`
	Number        string          `json:"number" gorm:"size:32;not null;uniqueIndex:idx_submittal_project_number"`
	Title         string          `json:"title" gorm:"size:255;not null"`
	Description   string          `json:"description,omitempty" gorm:"type:text"`
	SpecSection   string          `json:"spec_section,omitempty" gorm:"size:64"`
	Type          string          `json:"type,omitempty" gorm:"size:64"`
	Status        SubmittalStatus `json:"status" gorm:"type:varchar(24);not null;default:'draft';index"`
	SubmittedDate *time.Time      `json:"submitted_date,omitempty"`
	DueDate       *time.Time      `json:"due_date,omitempty" gorm:"index"`
	ReviewDate    *time.Time      `json:"review_date,omitempty"`
	ClosedDate    *time.Time      `json:"closed_date,omitempty"`
	CreatedByID   *uint           `json:"created_by_id,omitempty" gorm:"index"`
	AssignedToID  *uint           `json:"assigned_to_id,omitempty" gorm:"index"`
	Comments      string          `json:"comments,omitempty" gorm:"type:text"`
	Revision      int             `json:"revision" gorm:"not null;default:0"`

	// Relations
	Attachments []Attachment `json:"attachments,omitempty" gorm:"polymorphic:Owner;polymorphicValue:submittals"`
}

func (Submittal) TableName() string { return "submittals" }

func (s Submittal) Parties() (createdBy, assignedTo *uint) { return s.CreatedByID, s.AssignedToID }

func (s Submittal) Label() string { return s.Number + " " + s.Title }

// BeforeCreate fills the initial status.
func (s *Submittal) BeforeCreate(tx *gorm.DB) error {
	if s.Status == "" {
		s.Status = SubmittalStatusDraft
	}
	return s.Base.BeforeCreate(tx)
}

// Reviewed reports whether the design team has issued a decision.
func (s *Submittal) Reviewed() bool {
	switch s.Status {
	case SubmittalStatusApproved, SubmittalStatusApprovedAsNoted, SubmittalStatusRejected, SubmittalStatusClosed:
		return true
	}
	return false
}

// IsOverdue reports whether a submittal still awaiting a decision is past due.
func (s *Submittal) IsOverdue(now time.Time) bool {
	if s.DueDate == nil || s.Reviewed() {
		return false
	}
	return now.After(*s.DueDate)
}

// DaysInReview counts days since submission until review or now.
func (s *Submittal) DaysInReview(now time.Time) int {
	if s.SubmittedDate == nil {
		return 0
	}
	end := now
	if s.ReviewDate != nil {
		end = *s.ReviewDate
	}
	return daysBetween(*s.SubmittedDate, end)
}
