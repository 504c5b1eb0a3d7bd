package gormstore

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
)

type sessions struct{ db *gorm.DB }

func (r *sessions) Create(ctx context.Context, s *models.DefenseSession) error {
	return errors.Wrap(translate(r.db.WithContext(ctx).Create(s).Error), "create session")
}

func (r *sessions) Get(ctx context.Context, id string) (models.DefenseSession, error) {
	var s models.DefenseSession
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return models.DefenseSession{}, errors.Wrapf(translate(err), "get session %s", id)
	}
	return s, nil
}

func (r *sessions) List(ctx context.Context) ([]models.DefenseSession, error) {
	var out []models.DefenseSession
	if err := r.db.WithContext(ctx).Order("created_at DESC, id ASC").Find(&out).Error; err != nil {
		return nil, errors.Wrap(translate(err), "list sessions")
	}
	return out, nil
}

func (r *sessions) Update(ctx context.Context, s *models.DefenseSession) error {
	res := r.db.WithContext(ctx).Model(&models.DefenseSession{}).
		Where("id = ?", s.ID).
		Select("*").Omit("id", "created_at").
		Updates(s)
	if res.Error != nil {
		return errors.Wrapf(translate(res.Error), "update session %s", s.ID)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
