package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "gcpanel/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"gcpanel/internal/app"
	"gcpanel/internal/auth"
	"gcpanel/internal/cache"
	"gcpanel/internal/config"
	"gcpanel/internal/db"
	"gcpanel/internal/handler"
	"gcpanel/internal/inventory"
	"gcpanel/internal/logging"
	"gcpanel/internal/model"
	"gcpanel/internal/repository"
	"gcpanel/internal/router"
	"gcpanel/internal/service"
	"gcpanel/internal/tracing"
)

const (
	principalCacheSize = 1024
	principalCacheTTL  = time.Minute
	shutdownTimeout    = 10 * time.Second
)

// @title gcPanel API
// @version 1.0
// @description Construction project management API: projects, RFIs, submittals, field registers and inventory with JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.UsesDefaultSecret() {
		logger.Warn("JWT_SECRET not set, signing tokens with the built-in development secret")
	}

	shutdownTracing, err := tracing.Init(ctx, logger, cfg.OTLPEndpoint, "gcpanel", cfg.Environment)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	gormDB, err := db.Open(ctx, db.Options{Driver: cfg.DBDriver, Path: cfg.DBPath, DSN: cfg.DBDSN})
	if err != nil {
		return err
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		logger.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			return err
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, cache lookups will miss", slog.String("addr", cfg.RedisAddr), slog.String("error", err.Error()))
	}
	logger.Info("cache ready", slog.String("backend", cacheClient.Backend()))

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	roleRepo := repository.NewRoleRepository(gormDB)
	projectRepo := repository.NewProjectRepository(gormDB)
	rfiRepo := repository.NewRfiRepository(gormDB)
	submittalRepo := repository.NewSubmittalRepository(gormDB)
	configRepo := repository.NewConfigRepository(gormDB)
	auditRepo := repository.NewAuditRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)
	principals := auth.NewPrincipalCache(principalCacheSize, principalCacheTTL)

	// Initialize services
	auditService := service.NewAuditService(auditRepo)
	defer auditService.Close()

	authService := service.NewAuthService(userRepo, roleRepo, jwtService, tokenStore, principals, auditService, service.AuthOptions{
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	projectService := service.NewProjectService(projectRepo, cacheClient, auditService)
	sessions := app.NewSessionStore(cacheClient)
	rfiService := service.NewRfiService(rfiRepo, projectRepo, auditService, sessions)
	submittalService := service.NewSubmittalService(submittalRepo, projectRepo, auditService, sessions)
	userService := service.NewUserService(userRepo, principals, auditService)
	settingsService := service.NewSettingsService(configRepo, auditService)
	adminService := service.NewAdminService(purgers(gormDB, userRepo, projectRepo, rfiRepo, submittalRepo), cacheClient, principals, auditService)

	if _, err := authService.InitializeAuth(ctx, service.AdminBootstrap{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}); err != nil {
		return err
	}

	seededAt := time.Now()
	equipment := inventory.NewEquipmentStore(seededAt)
	materials := inventory.NewMaterialStore()
	documents := inventory.NewDocumentStore(seededAt)
	photos := inventory.NewPhotoStore(seededAt)
	transmittals := inventory.NewTransmittalStore(seededAt)
	dailyReports := inventory.NewDailyReportStore(seededAt)

	dispatcher := app.NewDispatcher(sessions, app.DefaultModules(app.Deps{
		Projects:     projectService,
		Rfis:         rfiService,
		Submittals:   submittalService,
		Users:        userService,
		Settings:     settingsService,
		Equipment:    equipment,
		Materials:    materials,
		Documents:    documents,
		Photos:       photos,
		Transmittals: transmittals,
		DailyReports: dailyReports,
	})...)

	e := echo.New()
	e.HideBanner = true

	// Register routes
	router.Register(e, logger, authService, router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Modules:      handler.NewModuleHandler(dispatcher, sessions),
		Projects:     handler.NewProjectHandler(projectService),
		Rfis:         handler.NewRfiHandler(rfiService),
		Submittals:   handler.NewSubmittalHandler(submittalService),
		Equipment:    handler.NewEquipmentHandler(equipment),
		Materials:    handler.NewMaterialHandler(materials),
		Documents:    handler.NewDocumentHandler(documents),
		Photos:       handler.NewPhotoHandler(photos),
		Transmittals: handler.NewTransmittalHandler(transmittals),
		DailyReports: handler.NewDailyReportHandler(dailyReports),
		Field:        handler.NewFieldHandler(documents, photos, transmittals),
		Users:        handler.NewUserHandler(userService),
		Admin:        handler.NewAdminHandler(adminService, settingsService, auditService),
	})

	logger.Info("swagger documentation available", slog.String("url", swaggerURL(cfg)))

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		logger.Info("http server listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

// purgers lists the entity types an administrator may hard delete or restore.
func purgers(gormDB *gorm.DB, users repository.UserRepository, projects repository.ProjectRepository,
	rfis repository.RfiRepository, submittals repository.SubmittalRepository) map[string]service.Purger {
	return map[string]service.Purger{
		"users":       users,
		"projects":    projects,
		"rfis":        rfis,
		"submittals":  submittals,
		"milestones":  repository.New[model.Milestone](gormDB),
		"attachments": repository.New[model.Attachment](gormDB),
	}
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
