package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gcpanel/internal/auth"
	"gcpanel/internal/cache"
	"gcpanel/internal/db/dbtest"
	"gcpanel/internal/model"
	"gcpanel/internal/repository"
)

const testSecret = "test-secret"

type fixture struct {
	db         *gorm.DB
	cache      *cache.Client
	users      repository.UserRepository
	roles      repository.RoleRepository
	projects   repository.ProjectRepository
	rfiRepo    repository.RfiRepository
	subRepo    repository.SubmittalRepository
	auditRepo  repository.AuditRepository
	jwt        *auth.JWTService
	tokens     *auth.TokenStore
	principals *auth.PrincipalCache
	audit      AuditService
	auth       AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.New(t)
	f := &fixture{
		db:         gdb,
		cache:      cache.NewLocal(1000),
		users:      repository.NewUserRepository(gdb),
		roles:      repository.NewRoleRepository(gdb),
		projects:   repository.NewProjectRepository(gdb),
		rfiRepo:    repository.NewRfiRepository(gdb),
		subRepo:    repository.NewSubmittalRepository(gdb),
		auditRepo:  repository.NewAuditRepository(gdb),
		jwt:        auth.NewJWTService(testSecret),
		principals: auth.NewPrincipalCache(100, time.Minute),
	}
	f.tokens = auth.NewTokenStore(f.cache)
	f.audit = NewAuditService(f.auditRepo)
	t.Cleanup(f.audit.Close)
	f.auth = NewAuthService(f.users, f.roles, f.jwt, f.tokens, f.principals, f.audit, AuthOptions{
		AccessTTL:  5 * time.Minute,
		RefreshTTL: time.Hour,
	})

	_, err := f.auth.InitializeAuth(context.Background(), AdminBootstrap{})
	require.NoError(t, err)
	return f
}

// user creates an active user holding role.
func (f *fixture) user(t *testing.T, username, password, role string) *model.User {
	t.Helper()
	ctx := context.Background()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	u := &model.User{Username: username, Email: username + "@example.com", PasswordHash: hash}
	require.NoError(t, f.users.Insert(ctx, u))
	if role != "" {
		require.NoError(t, f.users.AssignRole(ctx, u.ID, role))
	}
	loaded, err := f.users.WithRoles(ctx, u.ID)
	require.NoError(t, err)
	return loaded
}

func (f *fixture) project(t *testing.T, code string) *model.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), map[string]any{"name": "Project " + code, "code": code})
	require.NoError(t, err)
	return p
}
