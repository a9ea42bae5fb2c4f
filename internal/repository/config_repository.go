package repository

import (
	"context"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gcpanel/internal/model"
)

// ConfigRepository stores key/value application settings.
type ConfigRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) ([]model.AppConfig, error)
}

type configRepository struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewConfigRepository builds a GORM-backed repository.
func NewConfigRepository(db *gorm.DB) ConfigRepository {
	return &configRepository{db: db, log: slog.Default().With(slog.String("entity", "app_config"))}
}

func (r *configRepository) Get(ctx context.Context, key string) (string, error) {
	var cfg model.AppConfig
	if err := r.db.WithContext(ctx).Where(&model.AppConfig{Key: key}).First(&cfg).Error; err != nil {
		return "", translate(r.log, "app_config", "get", 0, err)
	}
	return cfg.Value, nil
}

// Set inserts or replaces the value for key.
func (r *configRepository) Set(ctx context.Context, key, value string) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&model.AppConfig{Key: key, Value: value}).Error
	return translate(r.log, "app_config", "set", 0, err)
}

func (r *configRepository) All(ctx context.Context) ([]model.AppConfig, error) {
	var out []model.AppConfig
	err := r.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&out).Error
	return out, translate(r.log, "app_config", "all", 0, err)
}
