package gormstore

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
)

type registrations struct{ db *gorm.DB }

func (r *registrations) Create(ctx context.Context, reg *models.Registration) error {
	return errors.Wrap(translate(r.db.WithContext(ctx).Create(reg).Error), "create registration")
}

func (r *registrations) Get(ctx context.Context, id string) (models.Registration, error) {
	var reg models.Registration
	if err := r.db.WithContext(ctx).First(&reg, "id = ?", id).Error; err != nil {
		return models.Registration{}, errors.Wrapf(translate(err), "get registration %s", id)
	}
	return reg, nil
}

func (r *registrations) GetForUpdate(ctx context.Context, id string) (models.Registration, error) {
	var reg models.Registration
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&reg, "id = ?", id).Error
	if err != nil {
		return models.Registration{}, errors.Wrapf(translate(err), "lock registration %s", id)
	}
	return reg, nil
}

func (r *registrations) List(ctx context.Context, f store.RegistrationFilter) ([]models.Registration, error) {
	q := r.db.WithContext(ctx).Order("student_id ASC, id ASC")
	if f.SessionID != "" {
		q = q.Where("session_id = ?", f.SessionID)
	}
	if f.SupervisorID != "" {
		q = q.Where("supervisor_id = ?", f.SupervisorID)
	}
	if f.StudentID != "" {
		q = q.Where("student_id = ?", f.StudentID)
	}
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return []models.Registration{}, nil
		}
		q = q.Where("id IN ?", f.IDs)
	}
	var out []models.Registration
	if err := q.Find(&out).Error; err != nil {
		return nil, errors.Wrap(translate(err), "list registrations")
	}
	return out, nil
}

func (r *registrations) CountBound(ctx context.Context, key models.TopicKey) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Registration{}).
		Where("session_id = ? AND project_title = ? AND supervisor_id = ?", key.SessionID, key.Title, key.SupervisorID).
		Where("project_registration_status IS NOT NULL").
		Count(&n).Error
	if err != nil {
		return 0, errors.Wrap(translate(err), "count bound registrations")
	}
	return int(n), nil
}

func (r *registrations) Update(ctx context.Context, reg *models.Registration) error {
	old := reg.Version
	reg.Version = old + 1
	if err := guardedUpdate(ctx, r.db, &models.Registration{}, reg, reg.ID, old); err != nil {
		reg.Version = old
		return errors.Wrapf(err, "update registration %s", reg.ID)
	}
	return nil
}
