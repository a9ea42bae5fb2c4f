package service

import (
	"context"

	"gcpanel/internal/auth"
	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/model"
	"gcpanel/internal/repository"
)

// UserService exposes user administration.
type UserService interface {
	ListUsers(ctx context.Context, skip, limit int) ([]model.User, error)
	ListByStatus(ctx context.Context, status model.UserStatus) ([]model.User, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	SetStatus(ctx context.Context, actor *model.User, id uint, status model.UserStatus) (*model.User, error)
	AssignRole(ctx context.Context, actor *model.User, id uint, role string) (*model.User, error)
	RevokeRole(ctx context.Context, actor *model.User, id uint, role string) (*model.User, error)
}

type userService struct {
	repo       repository.UserRepository
	principals *auth.PrincipalCache
	audit      AuditService
}

// NewUserService builds a UserService. Changes that affect authorization
// flush cached principals.
func NewUserService(repo repository.UserRepository, principals *auth.PrincipalCache, audit AuditService) UserService {
	return &userService{repo: repo, principals: principals, audit: audit}
}

func (s *userService) ListUsers(ctx context.Context, skip, limit int) ([]model.User, error) {
	return s.repo.GetAll(ctx, skip, limit)
}

func (s *userService) ListByStatus(ctx context.Context, status model.UserStatus) ([]model.User, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("unknown user status %q", status)
	}
	return s.repo.ListByStatus(ctx, status)
}

func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	return s.repo.WithRoles(ctx, id)
}

func (s *userService) SetStatus(ctx context.Context, actor *model.User, id uint, status model.UserStatus) (*model.User, error) {
	if actor != nil && actor.ID == id && status != model.UserStatusActive {
		return nil, apperrors.Validation("cannot deactivate your own account")
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.principals.Purge()
	s.audit.Record(ctx, actor, ActionStatus, "users", id, string(status))
	return s.repo.WithRoles(ctx, id)
}

func (s *userService) AssignRole(ctx context.Context, actor *model.User, id uint, role string) (*model.User, error) {
	if err := s.repo.AssignRole(ctx, id, role); err != nil {
		return nil, err
	}
	s.principals.Purge()
	s.audit.Record(ctx, actor, ActionAssignRole, "users", id, role)
	return s.repo.WithRoles(ctx, id)
}

func (s *userService) RevokeRole(ctx context.Context, actor *model.User, id uint, role string) (*model.User, error) {
	if actor != nil && actor.ID == id && role == model.RoleAdmin {
		return nil, apperrors.Validation("cannot revoke your own admin role")
	}
	if err := s.repo.RevokeRole(ctx, id, role); err != nil {
		return nil, err
	}
	s.principals.Purge()
	s.audit.Record(ctx, actor, ActionRevokeRole, "users", id, role)
	return s.repo.WithRoles(ctx, id)
}
