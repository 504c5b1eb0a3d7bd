// Package gormstore implements store.Store on top of gorm. It is used with
// PostgreSQL in production and with SQLite in tests.
package gormstore

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zaqqye/defense_backend_v1/internal/store"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txView{db: tx})
	})
	return translate(err)
}

func (s *Store) Sessions() store.SessionRepository           { return &sessions{s.db} }
func (s *Store) Topics() store.TopicRepository               { return &topics{s.db} }
func (s *Store) Registrations() store.RegistrationRepository { return &registrations{s.db} }
func (s *Store) Evaluations() store.EvaluationRepository     { return &evaluations{s.db} }
func (s *Store) Rubrics() store.RubricRepository             { return &rubrics{s.db} }
func (s *Store) Settings() store.SettingRepository           { return &settings{s.db} }

type txView struct{ db *gorm.DB }

func (v *txView) Sessions() store.SessionRepository           { return &sessions{v.db} }
func (v *txView) Topics() store.TopicRepository               { return &topics{v.db} }
func (v *txView) Registrations() store.RegistrationRepository { return &registrations{v.db} }
func (v *txView) Evaluations() store.EvaluationRepository     { return &evaluations{v.db} }
func (v *txView) Rubrics() store.RubricRepository             { return &rubrics{v.db} }
func (v *txView) Settings() store.SettingRepository           { return &settings{v.db} }

// translate maps driver errors onto the store sentinels. Errors that already
// wrap a sentinel pass through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrStaleWrite) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return errors.Wrap(store.ErrConflict, pgErr.ConstraintName)
		case "40001", "40P01":
			return errors.Wrap(store.ErrStaleWrite, pgErr.Message)
		}
	}
	// sqlite reports constraint violations as plain text
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") {
		return store.ErrConflict
	}
	return err
}

// guardedUpdate saves every column of value where id and version match, then
// reports ErrNotFound or ErrStaleWrite when nothing was written.
func guardedUpdate(ctx context.Context, db *gorm.DB, model interface{}, value interface{}, id string, version int) error {
	res := db.WithContext(ctx).Model(model).
		Where("id = ? AND version = ?", id, version).
		Select("*").Omit("id", "created_at").
		Updates(value)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	var n int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return translate(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrStaleWrite
}
