package gormstore

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/defense_backend_v1/internal/models"
)

type settings struct{ db *gorm.DB }

func (r *settings) Get(ctx context.Context, key string) (models.AppSetting, error) {
	var s models.AppSetting
	if err := r.db.WithContext(ctx).First(&s, "key = ?", key).Error; err != nil {
		return models.AppSetting{}, errors.Wrapf(translate(err), "get setting %s", key)
	}
	return s, nil
}

func (r *settings) Put(ctx context.Context, s *models.AppSetting) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_at"}),
	}).Create(s).Error
	return errors.Wrapf(translate(err), "put setting %s", s.Key)
}

func (r *settings) List(ctx context.Context) ([]models.AppSetting, error) {
	var out []models.AppSetting
	if err := r.db.WithContext(ctx).Order("key ASC").Find(&out).Error; err != nil {
		return nil, errors.Wrap(translate(err), "list settings")
	}
	return out, nil
}
