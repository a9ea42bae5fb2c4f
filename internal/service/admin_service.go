package service

import (
	"context"
	"maps"
	"slices"

	"gcpanel/internal/auth"
	"gcpanel/internal/cache"
	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/model"
)

// Purger removes and restores records by id. Every repository.Store satisfies it.
type Purger interface {
	HardDelete(ctx context.Context, id uint) error
	Restore(ctx context.Context, id uint) error
}

// AdminService runs destructive maintenance across entity types.
type AdminService interface {
	Entities() []string
	HardDelete(ctx context.Context, actor *model.User, entity string, id uint) error
	Restore(ctx context.Context, actor *model.User, entity string, id uint) error
}

type adminService struct {
	stores     map[string]Purger
	cache      *cache.Client
	principals *auth.PrincipalCache
	audit      AuditService
}

// NewAdminService builds an AdminService over stores keyed by table name.
// principals is purged whenever a user row is removed or restored.
func NewAdminService(stores map[string]Purger, cache *cache.Client, principals *auth.PrincipalCache, audit AuditService) AdminService {
	return &adminService{stores: stores, cache: cache, principals: principals, audit: audit}
}

func (s *adminService) Entities() []string {
	return slices.Sorted(maps.Keys(s.stores))
}

func (s *adminService) store(entity string) (Purger, error) {
	st, ok := s.stores[entity]
	if !ok {
		return nil, apperrors.Validation("unknown entity %q", entity)
	}
	return st, nil
}

// HardDelete physically removes a record, active or not.
func (s *adminService) HardDelete(ctx context.Context, actor *model.User, entity string, id uint) error {
	st, err := s.store(entity)
	if err != nil {
		return err
	}
	if err := st.HardDelete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, entity, id)
	s.audit.Record(ctx, actor, ActionHardDelete, entity, id, "")
	return nil
}

// Restore reactivates a soft-deleted record.
func (s *adminService) Restore(ctx context.Context, actor *model.User, entity string, id uint) error {
	st, err := s.store(entity)
	if err != nil {
		return err
	}
	if err := st.Restore(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, entity, id)
	s.audit.Record(ctx, actor, ActionUpdate, entity, id, "restore")
	return nil
}

// invalidate drops cached copies of the record.
func (s *adminService) invalidate(ctx context.Context, entity string, id uint) {
	switch entity {
	case "projects":
		_ = s.cache.Delete(ctx, projectCacheKey(id))
	case "users":
		// principals are keyed by token id, not user id
		s.principals.Purge()
	}
}
