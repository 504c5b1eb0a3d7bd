package gormstore

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/defense_backend_v1/internal/models"
)

type topics struct{ db *gorm.DB }

func (r *topics) Create(ctx context.Context, t *models.Topic) error {
	return errors.Wrap(translate(r.db.WithContext(ctx).Create(t).Error), "create topic")
}

func (r *topics) Get(ctx context.Context, id string) (models.Topic, error) {
	var t models.Topic
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return models.Topic{}, errors.Wrapf(translate(err), "get topic %s", id)
	}
	return t, nil
}

func (r *topics) List(ctx context.Context, sessionID string) ([]models.Topic, error) {
	q := r.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	var out []models.Topic
	if err := q.Find(&out).Error; err != nil {
		return nil, errors.Wrap(translate(err), "list topics")
	}
	return out, nil
}

func (r *topics) LockByKey(ctx context.Context, key models.TopicKey) ([]models.Topic, error) {
	var out []models.Topic
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_id = ? AND title = ? AND supervisor_id = ?", key.SessionID, key.Title, key.SupervisorID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(translate(err), "lock topics")
	}
	return out, nil
}

func (r *topics) Update(ctx context.Context, t *models.Topic) error {
	old := t.Version
	t.Version = old + 1
	if err := guardedUpdate(ctx, r.db, &models.Topic{}, t, t.ID, old); err != nil {
		t.Version = old
		return errors.Wrapf(err, "update topic %s", t.ID)
	}
	return nil
}

func (r *topics) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Topic{})
	if res.Error != nil {
		return errors.Wrapf(translate(res.Error), "delete topic %s", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(translate(gorm.ErrRecordNotFound), "delete topic %s", id)
	}
	return nil
}
