package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/settings"
)

// SeedSettings inserts the default policy settings, leaving existing values alone.
func SeedSettings(db *gorm.DB) error {
	defaults := make([]models.AppSetting, len(settings.Defaults))
	copy(defaults, settings.Defaults)
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error
}
