package service

import (
	"context"
	"strings"

	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/model"
	"gcpanel/internal/repository"
)

const maxSettingKeyLength = 128

// SettingsService manages key/value application settings.
type SettingsService interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, actor *model.User, key, value string) error
	All(ctx context.Context) ([]model.AppConfig, error)
}

type settingsService struct {
	repo  repository.ConfigRepository
	audit AuditService
}

// NewSettingsService builds a SettingsService.
func NewSettingsService(repo repository.ConfigRepository, audit AuditService) SettingsService {
	return &settingsService{repo: repo, audit: audit}
}

func (s *settingsService) Get(ctx context.Context, key string) (string, error) {
	return s.repo.Get(ctx, key)
}

func (s *settingsService) Set(ctx context.Context, actor *model.User, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > maxSettingKeyLength {
		return apperrors.Validation("setting key must be 1-%d characters", maxSettingKeyLength)
	}
	if err := s.repo.Set(ctx, key, value); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, ActionSetting, "app_config", 0, key)
	return nil
}

func (s *settingsService) All(ctx context.Context) ([]model.AppConfig, error) {
	return s.repo.All(ctx)
}
