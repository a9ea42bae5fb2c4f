package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gcpanel/internal/cache"
	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/metrics"
	"gcpanel/internal/model"
	"gcpanel/internal/repository"
)

const projectCacheTTL = 5 * time.Minute

// MilestoneInput describes a new milestone.
type MilestoneInput struct {
	Name    string
	DueDate *time.Time
}

// ProjectService exposes project operations.
type ProjectService interface {
	List(ctx context.Context, skip, limit int) ([]model.Project, error)
	ListAll(ctx context.Context) ([]model.Project, error)
	ListForUser(ctx context.Context, userID uint) ([]model.Project, error)
	Search(ctx context.Context, term string) ([]model.Project, error)
	CountByStatus(ctx context.Context) (map[model.ProjectStatus]int64, error)
	Get(ctx context.Context, id uint) (*model.Project, error)
	GetByCode(ctx context.Context, code string) (*model.Project, error)
	Create(ctx context.Context, actor *model.User, fields map[string]any) (*model.Project, error)
	Update(ctx context.Context, actor *model.User, id uint, fields map[string]any) (*model.Project, error)
	Delete(ctx context.Context, actor *model.User, id uint) error
	SetStatus(ctx context.Context, actor *model.User, id uint, status model.ProjectStatus) (*model.Project, error)

	AddMember(ctx context.Context, actor *model.User, projectID, userID uint) error
	RemoveMember(ctx context.Context, actor *model.User, projectID, userID uint) error
	Members(ctx context.Context, projectID uint) ([]model.User, error)

	AddMilestone(ctx context.Context, actor *model.User, projectID uint, in MilestoneInput) (*model.Milestone, error)
	Milestones(ctx context.Context, projectID uint) ([]model.Milestone, error)
	CompleteMilestone(ctx context.Context, actor *model.User, milestoneID uint) (*model.Milestone, error)
}

type projectService struct {
	repo  repository.ProjectRepository
	cache *cache.Client
	audit AuditService
	now   func() time.Time
}

// NewProjectService builds a ProjectService. Single-project reads go through the cache.
func NewProjectService(repo repository.ProjectRepository, cache *cache.Client, audit AuditService) ProjectService {
	return &projectService{repo: repo, cache: cache, audit: audit, now: time.Now}
}

func projectCacheKey(id uint) string {
	return fmt.Sprintf("project:%d", id)
}

func (s *projectService) invalidate(ctx context.Context, id uint) {
	_ = s.cache.Delete(ctx, projectCacheKey(id))
}

func (s *projectService) List(ctx context.Context, skip, limit int) ([]model.Project, error) {
	return s.repo.GetAll(ctx, skip, limit)
}

func (s *projectService) ListAll(ctx context.Context) ([]model.Project, error) {
	return s.repo.ListAll(ctx)
}

func (s *projectService) ListForUser(ctx context.Context, userID uint) ([]model.Project, error) {
	return s.repo.ListForMember(ctx, userID)
}

func (s *projectService) Search(ctx context.Context, term string) ([]model.Project, error) {
	return s.repo.Search(ctx, term, "name", "code", "location")
}

func (s *projectService) CountByStatus(ctx context.Context) (map[model.ProjectStatus]int64, error) {
	return s.repo.CountByStatus(ctx)
}

func (s *projectService) Get(ctx context.Context, id uint) (*model.Project, error) {
	if data, _ := s.cache.Get(ctx, projectCacheKey(id)); data != nil {
		var cached model.Project
		if err := json.Unmarshal(data, &cached); err == nil {
			metrics.ObserveCacheLookup("project", true)
			return &cached, nil
		}
	}
	metrics.ObserveCacheLookup("project", false)

	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(project); err == nil {
		_ = s.cache.Set(ctx, projectCacheKey(id), payload, projectCacheTTL)
	}
	return project, nil
}

func (s *projectService) GetByCode(ctx context.Context, code string) (*model.Project, error) {
	return s.repo.GetByCode(ctx, code)
}

func validateProjectStatus(fields map[string]any) error {
	raw, ok := fields["status"]
	if !ok {
		return nil
	}
	var status model.ProjectStatus
	switch v := raw.(type) {
	case model.ProjectStatus:
		status = v
	case string:
		status = model.ProjectStatus(v)
	}
	if !status.Valid() {
		return apperrors.Validation("unknown project status %v", raw)
	}
	return nil
}

func (s *projectService) Create(ctx context.Context, actor *model.User, fields map[string]any) (*model.Project, error) {
	if err := validateProjectStatus(fields); err != nil {
		return nil, err
	}
	project, err := s.repo.Create(ctx, fields)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, ActionCreate, "projects", project.ID, project.Code)
	return project, nil
}

func (s *projectService) Update(ctx context.Context, actor *model.User, id uint, fields map[string]any) (*model.Project, error) {
	if err := validateProjectStatus(fields); err != nil {
		return nil, err
	}
	project, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.audit.Record(ctx, actor, ActionUpdate, "projects", id, joinKeys(fields))
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, actor *model.User, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.audit.Record(ctx, actor, ActionDelete, "projects", id, "")
	return nil
}

func (s *projectService) SetStatus(ctx context.Context, actor *model.User, id uint, status model.ProjectStatus) (*model.Project, error) {
	project, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.audit.Record(ctx, actor, ActionStatus, "projects", id, string(status))
	return project, nil
}

func (s *projectService) AddMember(ctx context.Context, actor *model.User, projectID, userID uint) error {
	if err := s.repo.AddTeamMember(ctx, projectID, userID); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, ActionAddMember, "projects", projectID, fmt.Sprintf("user %d", userID))
	return nil
}

func (s *projectService) RemoveMember(ctx context.Context, actor *model.User, projectID, userID uint) error {
	if err := s.repo.RemoveTeamMember(ctx, projectID, userID); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, ActionRemoveMember, "projects", projectID, fmt.Sprintf("user %d", userID))
	return nil
}

func (s *projectService) Members(ctx context.Context, projectID uint) ([]model.User, error) {
	return s.repo.TeamMembers(ctx, projectID)
}

func (s *projectService) AddMilestone(ctx context.Context, actor *model.User, projectID uint, in MilestoneInput) (*model.Milestone, error) {
	if in.Name == "" {
		return nil, apperrors.Validation("milestone name is required")
	}
	m := &model.Milestone{ProjectID: projectID, Name: in.Name, DueDate: in.DueDate}
	if err := s.repo.AddMilestone(ctx, m); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, ActionCreate, "milestones", m.ID, in.Name)
	return m, nil
}

func (s *projectService) Milestones(ctx context.Context, projectID uint) ([]model.Milestone, error) {
	return s.repo.Milestones(ctx, projectID)
}

func (s *projectService) CompleteMilestone(ctx context.Context, actor *model.User, milestoneID uint) (*model.Milestone, error) {
	m, err := s.repo.CompleteMilestone(ctx, milestoneID, s.now())
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, ActionStatus, "milestones", milestoneID, "complete")
	return m, nil
}
