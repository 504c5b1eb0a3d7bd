// Package allocation binds registrations to topics. Every operation is one
// store transaction that re-reads occupancy under lock, so two callers racing
// for the last slot of a topic can never both succeed.
package allocation

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
)

var (
	ErrAlreadyRegistered = errors.New("registration already holds a topic")
	ErrCapacityExceeded  = errors.New("topic has no free slot")
	ErrNotRegistered     = errors.New("registration holds no topic")
	ErrTopicUnavailable  = errors.New("topic is not open for registration")
	ErrSessionMismatch   = errors.New("topic and registration belong to different sessions")
	ErrContention        = errors.New("registration is being changed concurrently, try again")
)

const DefaultMaxAttempts = 3

// Guard vets the locked registration before the engine writes it. A non-nil
// error aborts the operation unchanged. Callers use guards to enforce their
// own status policy; the engine itself only requires a bound or unbound topic.
type Guard func(reg models.Registration) error

func checkGuards(reg models.Registration, guards []Guard) error {
	for _, g := range guards {
		if err := g(reg); err != nil {
			return err
		}
	}
	return nil
}

type Engine struct {
	store       store.Store
	log         *zap.Logger
	maxAttempts int
}

type Option func(*Engine)

// WithMaxAttempts bounds how many times a transaction that lost a write race is
// replayed before the caller sees an error.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

func NewEngine(st store.Store, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{store: st, log: log.Named("allocation"), maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register binds the registration to the topic and returns the updated registration.
func (e *Engine) Register(ctx context.Context, topicID, registrationID string, guards ...Guard) (models.Registration, error) {
	var out models.Registration
	var occupancy, capacity int
	err := e.run(ctx, func(tx store.Tx) error {
		topic, err := tx.Topics().Get(ctx, topicID)
		if err != nil {
			return err
		}
		key := topic.Key()
		locked, err := tx.Topics().LockByKey(ctx, key)
		if err != nil {
			return err
		}
		target, ok := findTopic(locked, topicID)
		if !ok {
			// the record was re-keyed between the read and the lock
			return store.ErrStaleWrite
		}
		if target.Status == models.TopicStatusDraft {
			return ErrTopicUnavailable
		}

		reg, err := tx.Registrations().GetForUpdate(ctx, registrationID)
		if err != nil {
			return err
		}
		if reg.SessionID != target.SessionID {
			return ErrSessionMismatch
		}
		if err := checkGuards(reg, guards); err != nil {
			return err
		}
		if reg.ProjectRegistrationStatus != models.ProjectStatusNone && reg.TopicBound() {
			return ErrAlreadyRegistered
		}

		occupancy, err = tx.Registrations().CountBound(ctx, key)
		if err != nil {
			return err
		}
		capacity = target.MaxStudents
		if occupancy >= capacity {
			return ErrCapacityExceeded
		}

		bind(&reg, target)
		if err := tx.Registrations().Update(ctx, &reg); err != nil {
			return err
		}
		occupancy++

		for i := range locked {
			t := locked[i]
			if t.Status == models.TopicStatusApproved && t.MaxStudents <= occupancy {
				t.Status = models.TopicStatusTaken
				if err := tx.Topics().Update(ctx, &t); err != nil {
					return err
				}
			}
		}
		out = reg
		return nil
	})
	if errors.Is(err, store.ErrStaleWrite) {
		err = ErrCapacityExceeded
	}
	if err != nil {
		e.log.Info("topic registration refused",
			zap.String("topic_id", topicID),
			zap.String("registration_id", registrationID),
			zap.Error(err))
		return models.Registration{}, err
	}
	e.log.Info("topic registered",
		zap.String("topic_id", topicID),
		zap.String("registration_id", registrationID),
		zap.Int("occupancy", occupancy),
		zap.Int("max_students", capacity))
	return out, nil
}

// Cancel releases the topic bound to the registration.
func (e *Engine) Cancel(ctx context.Context, registrationID string, guards ...Guard) error {
	var key models.TopicKey
	err := e.run(ctx, func(tx store.Tx) error {
		reg, err := tx.Registrations().Get(ctx, registrationID)
		if err != nil {
			return err
		}
		if !reg.TopicBound() {
			return ErrNotRegistered
		}
		// topics are always locked before the registration row
		key = reg.TopicKey()
		locked, err := tx.Topics().LockByKey(ctx, key)
		if err != nil {
			return err
		}
		reg, err = tx.Registrations().GetForUpdate(ctx, registrationID)
		if err != nil {
			return err
		}
		if !reg.TopicBound() {
			return ErrNotRegistered
		}
		if reg.TopicKey() != key {
			return store.ErrStaleWrite
		}
		if err := checkGuards(reg, guards); err != nil {
			return err
		}

		unbind(&reg)
		if err := tx.Registrations().Update(ctx, &reg); err != nil {
			return err
		}
		occupancy, err := tx.Registrations().CountBound(ctx, key)
		if err != nil {
			return err
		}
		for i := range locked {
			t := locked[i]
			if t.Status == models.TopicStatusTaken && t.MaxStudents > occupancy {
				t.Status = models.TopicStatusApproved
				if err := tx.Topics().Update(ctx, &t); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if errors.Is(err, store.ErrStaleWrite) {
		err = ErrContention
	}
	if err != nil {
		e.log.Info("topic cancellation refused", zap.String("registration_id", registrationID), zap.Error(err))
		return err
	}
	e.log.Info("topic cancelled",
		zap.String("registration_id", registrationID),
		zap.String("session_id", key.SessionID),
		zap.String("title", key.Title))
	return nil
}

// run replays fn while it loses write races, up to maxAttempts times. The last
// ErrStaleWrite is returned when attempts run out.
func (e *Engine) run(ctx context.Context, fn func(tx store.Tx) error) error {
	var err error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err = e.store.WithinTx(ctx, fn)
		if !errors.Is(err, store.ErrStaleWrite) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		e.log.Debug("allocation transaction lost a race", zap.Int("attempt", attempt))
	}
	return err
}

func findTopic(ts []models.Topic, id string) (models.Topic, bool) {
	for _, t := range ts {
		if t.ID == id {
			return t, true
		}
	}
	return models.Topic{}, false
}

func bind(reg *models.Registration, t models.Topic) {
	id := t.ID
	reg.TopicID = &id
	reg.ProjectTitle = t.Title
	reg.Summary = t.Summary
	reg.Objectives = t.Objectives
	reg.ExpectedResults = t.ExpectedResults
	reg.SupervisorID = t.SupervisorID
	reg.SupervisorName = t.SupervisorName
	reg.ProjectRegistrationStatus = models.ProjectStatusPending
}

func unbind(reg *models.Registration) {
	reg.TopicID = nil
	reg.ProjectTitle = ""
	reg.Summary = ""
	reg.Objectives = ""
	reg.ExpectedResults = ""
	reg.SupervisorID = ""
	reg.SupervisorName = ""
	reg.ProjectRegistrationStatus = models.ProjectStatusNone
}
