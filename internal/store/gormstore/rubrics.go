package gormstore

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zaqqye/defense_backend_v1/internal/models"
)

type rubrics struct{ db *gorm.DB }

func (r *rubrics) Create(ctx context.Context, rb *models.Rubric) error {
	return errors.Wrap(translate(r.db.WithContext(ctx).Create(rb).Error), "create rubric")
}

func (r *rubrics) Get(ctx context.Context, id string) (models.Rubric, error) {
	var rb models.Rubric
	if err := r.db.WithContext(ctx).First(&rb, "id = ?", id).Error; err != nil {
		return models.Rubric{}, errors.Wrapf(translate(err), "get rubric %s", id)
	}
	return rb, nil
}

func (r *rubrics) List(ctx context.Context, evaluationType models.EvaluationType) ([]models.Rubric, error) {
	q := r.db.WithContext(ctx).Order("name ASC, version ASC")
	if evaluationType != "" {
		q = q.Where("evaluation_type = ?", evaluationType)
	}
	var out []models.Rubric
	if err := q.Find(&out).Error; err != nil {
		return nil, errors.Wrap(translate(err), "list rubrics")
	}
	return out, nil
}

func (r *rubrics) LatestVersion(ctx context.Context, lineageID string) (int, error) {
	var v int
	err := r.db.WithContext(ctx).Model(&models.Rubric{}).
		Where("lineage_id = ?", lineageID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&v).Error
	if err != nil {
		return 0, errors.Wrap(translate(err), "latest rubric version")
	}
	return v, nil
}
