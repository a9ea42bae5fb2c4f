package model

import "time"

// AppConfig is a key/value application setting.
type AppConfig struct {
	Key       string    `json:"key" gorm:"primaryKey;size:128"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AppConfig) TableName() string { return "app_config" }
