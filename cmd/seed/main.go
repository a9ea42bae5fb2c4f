package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"gcpanel/internal/auth"
	"gcpanel/internal/cache"
	"gcpanel/internal/config"
	"gcpanel/internal/db"
	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/logging"
	"gcpanel/internal/model"
	"gcpanel/internal/repository"
	"gcpanel/internal/seed"
	"gcpanel/internal/service"
)

func main() {
	cfg := config.Load()
	file := flag.String("file", cfg.SeedFile, "YAML fixture to load (built-in sample data when empty)")
	flag.Parse()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := run(context.Background(), cfg, *file, logger); err != nil {
		logger.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, file string, logger *slog.Logger) error {
	fixture, err := seed.Load(file)
	if err != nil {
		return err
	}

	gormDB, err := db.Open(ctx, db.Options{Driver: cfg.DBDriver, Path: cfg.DBPath, DSN: cfg.DBDSN})
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}
	logger.Info("database ready", slog.String("driver", cfg.DBDriver))

	userRepo := repository.NewUserRepository(gormDB)
	projectRepo := repository.NewProjectRepository(gormDB)
	rfiRepo := repository.NewRfiRepository(gormDB)
	submittalRepo := repository.NewSubmittalRepository(gormDB)

	auditService := service.NewAuditService(repository.NewAuditRepository(gormDB))
	defer auditService.Close()

	authService := service.NewAuthService(
		userRepo,
		repository.NewRoleRepository(gormDB),
		auth.NewJWTService(cfg.JWTSecret),
		auth.NewTokenStore(cache.NewLocal(16)),
		nil,
		auditService,
		service.AuthOptions{AccessTTL: cfg.AccessTokenTTL, RefreshTTL: cfg.RefreshTokenTTL},
	)
	boot, err := authService.InitializeAuth(ctx, service.AdminBootstrap{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		return err
	}
	if boot.GeneratedPassword != "" {
		logger.Warn("administrator created with a generated password",
			slog.String("username", cfg.AdminUsername), slog.String("password", boot.GeneratedPassword))
	}

	actor, err := seedActor(ctx, userRepo, cfg.AdminUsername)
	if err != nil {
		return err
	}

	projectService := service.NewProjectService(projectRepo, nil, auditService)
	seeder := seed.NewSeeder(
		projectService,
		service.NewRfiService(rfiRepo, projectRepo, auditService, nil),
		rfiRepo,
		service.NewSubmittalService(submittalRepo, projectRepo, auditService, nil),
		submittalRepo,
	)

	res, err := seeder.Apply(ctx, actor, fixture)
	if err != nil {
		return err
	}
	logger.Info("seed completed",
		slog.Int("projects_created", res.ProjectsCreated),
		slog.Int("projects_updated", res.ProjectsUpdated),
		slog.Int("rfis_created", res.RfisCreated),
		slog.Int("rfis_updated", res.RfisUpdated),
		slog.Int("submittals_created", res.SubmittalsCreated),
		slog.Int("submittals_updated", res.SubmittalsUpdated),
	)
	return nil
}

// seedActor returns the administrator that seeded rows are attributed to.
func seedActor(ctx context.Context, users repository.UserRepository, username string) (*model.User, error) {
	if username == "" {
		return nil, nil
	}
	u, err := users.GetByUsername(ctx, username)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load seed actor: %w", err)
	}
	return u, nil
}
