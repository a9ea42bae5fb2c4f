package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/model"
)

// ProjectRepository defines project persistence operations.
type ProjectRepository interface {
	Store[model.Project]
	GetByCode(ctx context.Context, code string) (*model.Project, error)
	ListAll(ctx context.Context) ([]model.Project, error)
	ListByStatus(ctx context.Context, status model.ProjectStatus) ([]model.Project, error)
	ListForMember(ctx context.Context, userID uint) ([]model.Project, error)
	CountByStatus(ctx context.Context) (map[model.ProjectStatus]int64, error)
	SetStatus(ctx context.Context, id uint, status model.ProjectStatus) (*model.Project, error)

	AddTeamMember(ctx context.Context, projectID, userID uint) error
	RemoveTeamMember(ctx context.Context, projectID, userID uint) error
	TeamMembers(ctx context.Context, projectID uint) ([]model.User, error)

	AddMilestone(ctx context.Context, milestone *model.Milestone) error
	Milestones(ctx context.Context, projectID uint) ([]model.Milestone, error)
	CompleteMilestone(ctx context.Context, milestoneID uint, at time.Time) (*model.Milestone, error)
}

type projectRepository struct {
	*Repository[model.Project]
	milestones *Repository[model.Milestone]
}

// NewProjectRepository builds a GORM-backed repository.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{
		Repository: New[model.Project](db),
		milestones: New[model.Milestone](db),
	}
}

func (r *projectRepository) GetByCode(ctx context.Context, code string) (*model.Project, error) {
	var project model.Project
	if err := r.active(ctx).Where("code = ?", code).First(&project).Error; err != nil {
		return nil, r.result("get_by_code", 0, err)
	}
	return &project, nil
}

// ListAll returns every active project ordered by name.
func (r *projectRepository) ListAll(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	err := r.active(ctx).Order("name").Order("id").Find(&projects).Error
	return projects, r.result("list_all", 0, err)
}

func (r *projectRepository) ListByStatus(ctx context.Context, status model.ProjectStatus) ([]model.Project, error) {
	var projects []model.Project
	err := r.active(ctx).Where("status = ?", status).Order("id").Find(&projects).Error
	return projects, r.result("list_by_status", 0, err)
}

// ListForMember returns active projects the user is a team member of.
func (r *projectRepository) ListForMember(ctx context.Context, userID uint) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Joins("JOIN project_team_members ON project_team_members.project_id = projects.id").
		Where("project_team_members.user_id = ? AND projects.is_active = ?", userID, true).
		Order("projects.id").
		Find(&projects).Error
	return projects, r.result("list_for_member", userID, err)
}

func (r *projectRepository) CountByStatus(ctx context.Context) (map[model.ProjectStatus]int64, error) {
	var rows []struct {
		Status model.ProjectStatus
		Count  int64
	}
	err := r.active(ctx).Model(&model.Project{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, r.result("count_by_status", 0, err)
	}
	out := make(map[model.ProjectStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// SetStatus sets any known status. Project status is not a state machine.
func (r *projectRepository) SetStatus(ctx context.Context, id uint, status model.ProjectStatus) (*model.Project, error) {
	if !status.Valid() {
		return nil, r.result("set_status", id, apperrors.Validation("unknown project status %q", status))
	}
	return r.Update(ctx, id, map[string]any{"status": status})
}

func (r *projectRepository) AddTeamMember(ctx context.Context, projectID, userID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, user, err := loadProjectAndUser(tx, projectID, userID)
		if err != nil {
			return err
		}
		return tx.Model(project).Association("TeamMembers").Append(user)
	})
	return r.result("add_team_member", projectID, err)
}

func (r *projectRepository) RemoveTeamMember(ctx context.Context, projectID, userID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, user, err := loadProjectAndUser(tx, projectID, userID)
		if err != nil {
			return err
		}
		return tx.Model(project).Association("TeamMembers").Delete(user)
	})
	return r.result("remove_team_member", projectID, err)
}

func loadProjectAndUser(tx *gorm.DB, projectID, userID uint) (*model.Project, *model.User, error) {
	var project model.Project
	if err := tx.Where("id = ? AND is_active = ?", projectID, true).First(&project).Error; err != nil {
		return nil, nil, err
	}
	var user model.User
	if err := tx.Where("id = ? AND is_active = ?", userID, true).First(&user).Error; err != nil {
		return nil, nil, err
	}
	return &project, &user, nil
}

// TeamMembers lists the active users on an active project.
func (r *projectRepository) TeamMembers(ctx context.Context, projectID uint) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.Where("id = ? AND is_active = ?", projectID, true).First(&project).Error; err != nil {
			return err
		}
		return tx.Model(&project).Where("users.is_active = ?", true).Order("users.id").Association("TeamMembers").Find(&users)
	})
	return users, r.result("team_members", projectID, err)
}

func (r *projectRepository) AddMilestone(ctx context.Context, milestone *model.Milestone) error {
	exists, err := r.Exists(ctx, milestone.ProjectID)
	if err != nil {
		return err
	}
	if !exists {
		return r.result("add_milestone", milestone.ProjectID, gorm.ErrRecordNotFound)
	}
	return r.milestones.Insert(ctx, milestone)
}

func (r *projectRepository) Milestones(ctx context.Context, projectID uint) ([]model.Milestone, error) {
	var out []model.Milestone
	err := r.milestones.active(ctx).Where("project_id = ?", projectID).
		Order("due_date").Order("id").Find(&out).Error
	return out, r.milestones.result("list", projectID, err)
}

// CompleteMilestone stamps the completion time once.
func (r *projectRepository) CompleteMilestone(ctx context.Context, milestoneID uint, at time.Time) (*model.Milestone, error) {
	var m model.Milestone
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND is_active = ?", milestoneID, true).First(&m).Error; err != nil {
			return err
		}
		if m.CompletedAt != nil {
			return nil
		}
		m.CompletedAt = &at
		return tx.Model(&m).Update("completed_at", at).Error
	})
	if err != nil {
		return nil, r.milestones.result("complete", milestoneID, err)
	}
	return &m, nil
}
