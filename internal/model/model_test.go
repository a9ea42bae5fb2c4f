package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestUser_Derived(t *testing.T) {
	u := User{
		Base:      Base{IsActive: true},
		Username:  "jsmith",
		FirstName: "Jane",
		LastName:  "Smith",
		Status:    UserStatusActive,
		Roles:     []Role{{Name: RoleEngineer}, {Name: RoleViewer}},
	}

	assert.Equal(t, "Jane Smith", u.FullName())
	assert.True(t, u.HasRole(RoleEngineer))
	assert.False(t, u.HasRole(RoleAdmin))
	assert.Equal(t, []string{RoleEngineer, RoleViewer}, u.RoleNames())
	assert.True(t, u.CanLogin())

	u.Status = UserStatusSuspended
	assert.False(t, u.CanLogin())

	u.Status = UserStatusActive
	u.IsActive = false
	assert.False(t, u.CanLogin())

	assert.Equal(t, "bob", (&User{Username: "bob"}).FullName())
}

func TestProject_Derived(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := Project{
		Status:    ProjectStatusConstruction,
		StartDate: ptr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:   ptr(time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)),
	}

	assert.Equal(t, 10, p.DaysRemaining(now))
	assert.False(t, p.IsOverdue(now))
	assert.Equal(t, 161, p.DurationDays())

	later := now.AddDate(0, 1, 0)
	assert.True(t, p.IsOverdue(later))
	p.Status = ProjectStatusComplete
	assert.False(t, p.IsOverdue(later))

	assert.Equal(t, 0, (&Project{}).DaysRemaining(now))
	assert.True(t, ProjectStatusOnHold.Valid())
	assert.False(t, ProjectStatus("demolished").Valid())
}

func TestRfi_IsOverdue(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, -1)

	tests := []struct {
		name   string
		rfi    Rfi
		expect bool
	}{
		{"past due and open", Rfi{Status: RfiStatusSubmitted, DueDate: &due}, true},
		{"answered", Rfi{Status: RfiStatusAnswered, DueDate: &due}, false},
		{"closed", Rfi{Status: RfiStatusClosed, DueDate: &due}, false},
		{"no due date", Rfi{Status: RfiStatusSubmitted}, false},
		{"due in future", Rfi{Status: RfiStatusDraft, DueDate: ptr(now.AddDate(0, 0, 3))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.rfi.IsOverdue(now))
		})
	}
}

func TestRfi_DaysOpen(t *testing.T) {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r := Rfi{Base: Base{CreatedAt: created}}
	assert.Equal(t, 5, r.DaysOpen(created.AddDate(0, 0, 5)))

	r.SubmittedDate = ptr(created.AddDate(0, 0, 2))
	r.ClosedDate = ptr(created.AddDate(0, 0, 4))
	assert.Equal(t, 2, r.DaysOpen(created.AddDate(0, 0, 30)))
}

func TestSubmittal_Derived(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	s := Submittal{
		Status:        SubmittalStatusUnderReview,
		SubmittedDate: ptr(now.AddDate(0, 0, -8)),
		DueDate:       ptr(now.AddDate(0, 0, -1)),
	}

	assert.True(t, s.IsOverdue(now))
	assert.Equal(t, 8, s.DaysInReview(now))

	s.Status = SubmittalStatusApprovedAsNoted
	s.ReviewDate = ptr(now.AddDate(0, 0, -3))
	assert.False(t, s.IsOverdue(now))
	assert.Equal(t, 5, s.DaysInReview(now))

	assert.Equal(t, 0, (&Submittal{}).DaysInReview(now))
}

func TestMilestone(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	m := Milestone{DueDate: ptr(now.AddDate(0, 0, -1))}
	assert.True(t, m.IsOverdue(now))
	m.CompletedAt = &now
	assert.True(t, m.IsComplete())
	assert.False(t, m.IsOverdue(now))
}
