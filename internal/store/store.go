// Package store defines the persistence contract shared by the PostgreSQL
// and in-memory backends.
package store

import (
	"context"
	"errors"

	"github.com/zaqqye/defense_backend_v1/internal/models"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrConflict   = errors.New("record already exists")
	ErrStaleWrite = errors.New("record changed since it was read")
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.DefenseSession) error
	Get(ctx context.Context, id string) (models.DefenseSession, error)
	List(ctx context.Context) ([]models.DefenseSession, error)
	Update(ctx context.Context, s *models.DefenseSession) error
}

type TopicRepository interface {
	Create(ctx context.Context, t *models.Topic) error
	Get(ctx context.Context, id string) (models.Topic, error)
	List(ctx context.Context, sessionID string) ([]models.Topic, error)
	// LockByKey returns every topic record of the identity key, ordered by id,
	// locked for the rest of the enclosing transaction.
	LockByKey(ctx context.Context, key models.TopicKey) ([]models.Topic, error)
	// Update saves t if its Version still matches the stored one and bumps it.
	Update(ctx context.Context, t *models.Topic) error
	Delete(ctx context.Context, id string) error
}

type RegistrationFilter struct {
	SessionID    string
	SupervisorID string
	StudentID    string
	IDs          []string
}

type RegistrationRepository interface {
	Create(ctx context.Context, r *models.Registration) error
	Get(ctx context.Context, id string) (models.Registration, error)
	// GetForUpdate locks the row for the rest of the enclosing transaction.
	GetForUpdate(ctx context.Context, id string) (models.Registration, error)
	List(ctx context.Context, f RegistrationFilter) ([]models.Registration, error)
	// CountBound counts registrations currently bound to the topic identity key.
	CountBound(ctx context.Context, key models.TopicKey) (int, error)
	// Update saves r if its Version still matches the stored one and bumps it.
	Update(ctx context.Context, r *models.Registration) error
}

type EvaluationKey struct {
	EvaluatorID    string
	RegistrationID string
	RubricID       string
	EvaluationType models.EvaluationType
}

type EvaluationFilter struct {
	RegistrationIDs []string
	EvaluationType  models.EvaluationType
	RubricID        string
	EvaluatorID     string
}

type EvaluationRepository interface {
	Create(ctx context.Context, e *models.Evaluation) error
	Get(ctx context.Context, id string) (models.Evaluation, error)
	Find(ctx context.Context, key EvaluationKey) (models.Evaluation, error)
	List(ctx context.Context, f EvaluationFilter) ([]models.Evaluation, error)
	UpdateScores(ctx context.Context, e *models.Evaluation) error
}

type RubricRepository interface {
	Create(ctx context.Context, r *models.Rubric) error
	Get(ctx context.Context, id string) (models.Rubric, error)
	List(ctx context.Context, evaluationType models.EvaluationType) ([]models.Rubric, error)
	LatestVersion(ctx context.Context, lineageID string) (int, error)
}

type SettingRepository interface {
	Get(ctx context.Context, key string) (models.AppSetting, error)
	Put(ctx context.Context, s *models.AppSetting) error
	List(ctx context.Context) ([]models.AppSetting, error)
}

// Tx exposes the repositories bound to one unit of work.
type Tx interface {
	Sessions() SessionRepository
	Topics() TopicRepository
	Registrations() RegistrationRepository
	Evaluations() EvaluationRepository
	Rubrics() RubricRepository
	Settings() SettingRepository
}

// Store is a Tx whose repositories each run in their own implicit transaction,
// plus WithinTx for multi-record units of work.
type Store interface {
	Tx
	// WithinTx runs fn in a single all-or-nothing transaction. Any error
	// returned by fn, or a cancelled ctx, rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
