package gormstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
)

type evaluations struct{ db *gorm.DB }

func (r *evaluations) Create(ctx context.Context, e *models.Evaluation) error {
	return errors.Wrap(translate(r.db.WithContext(ctx).Create(e).Error), "create evaluation")
}

func (r *evaluations) Get(ctx context.Context, id string) (models.Evaluation, error) {
	var e models.Evaluation
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return models.Evaluation{}, errors.Wrapf(translate(err), "get evaluation %s", id)
	}
	return e, nil
}

func (r *evaluations) Find(ctx context.Context, key store.EvaluationKey) (models.Evaluation, error) {
	var e models.Evaluation
	err := r.db.WithContext(ctx).
		Where("evaluator_id = ? AND registration_id = ? AND rubric_id = ? AND evaluation_type = ?",
			key.EvaluatorID, key.RegistrationID, key.RubricID, key.EvaluationType).
		First(&e).Error
	if err != nil {
		return models.Evaluation{}, errors.Wrap(translate(err), "find evaluation")
	}
	return e, nil
}

func (r *evaluations) List(ctx context.Context, f store.EvaluationFilter) ([]models.Evaluation, error) {
	q := r.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if f.RegistrationIDs != nil {
		if len(f.RegistrationIDs) == 0 {
			return []models.Evaluation{}, nil
		}
		q = q.Where("registration_id IN ?", f.RegistrationIDs)
	}
	if f.EvaluationType != "" {
		q = q.Where("evaluation_type = ?", f.EvaluationType)
	}
	if f.RubricID != "" {
		q = q.Where("rubric_id = ?", f.RubricID)
	}
	if f.EvaluatorID != "" {
		q = q.Where("evaluator_id = ?", f.EvaluatorID)
	}
	var out []models.Evaluation
	if err := q.Find(&out).Error; err != nil {
		return nil, errors.Wrap(translate(err), "list evaluations")
	}
	return out, nil
}

func (r *evaluations) UpdateScores(ctx context.Context, e *models.Evaluation) error {
	res := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Where("id = ?", e.ID).
		Updates(map[string]interface{}{"scores": e.Scores, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return errors.Wrapf(translate(res.Error), "update evaluation %s", e.ID)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(store.ErrNotFound, "update evaluation %s", e.ID)
	}
	fresh, err := r.Get(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = fresh
	return nil
}
