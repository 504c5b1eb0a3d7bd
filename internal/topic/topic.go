// Package topic is the catalog of supervisor-proposed topics of a session.
package topic

import (
	"context"
	"errors"
	"fmt"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
	"github.com/zaqqye/defense_backend_v1/internal/validation"
)

var (
	ErrTopicNotDraft = errors.New("topic is no longer a draft")
	ErrTopicInUse    = errors.New("topic has registered students")
)

type NewTopic struct {
	SupervisorID    string `json:"supervisor_id" yaml:"supervisor_id" validate:"notblank,max=64"`
	SupervisorName  string `json:"supervisor_name" yaml:"supervisor_name" validate:"max=255"`
	Title           string `json:"title" yaml:"title" validate:"notblank,max=512"`
	Summary         string `json:"summary" yaml:"summary"`
	Objectives      string `json:"objectives" yaml:"objectives"`
	ExpectedResults string `json:"expected_results" yaml:"expected_results"`
	Field           string `json:"field" yaml:"field" validate:"max=255"`
	MaxStudents     int    `json:"max_students" yaml:"max_students" validate:"gt=0"`
}

type UpdateTopic struct {
	Title           string `json:"title" validate:"notblank,max=512"`
	Summary         string `json:"summary"`
	Objectives      string `json:"objectives"`
	ExpectedResults string `json:"expected_results"`
	Field           string `json:"field" validate:"max=255"`
	MaxStudents     int    `json:"max_students" validate:"gt=0"`
}

// Availability is a topic as the browsing UI sees it. Occupancy counts every
// registration bound to the topic's identity key.
type Availability struct {
	models.Topic
	Occupancy int `json:"occupancy"`
	Remaining int `json:"remaining"`
}

type importBatch struct {
	Topics []NewTopic `json:"topics" validate:"required,min=1,dive"`
}

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Create stores a draft topic.
func (s *Service) Create(ctx context.Context, sessionID string, in NewTopic) (models.Topic, error) {
	if err := validation.Struct(in); err != nil {
		return models.Topic{}, err
	}
	t := fromInput(sessionID, in, models.TopicStatusDraft)
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Sessions().Get(ctx, sessionID); err != nil {
			return err
		}
		return tx.Topics().Create(ctx, &t)
	})
	if err != nil {
		return models.Topic{}, err
	}
	return t, nil
}

// Import stores a batch of approved topics in one transaction. Records that
// repeat an existing identity key are kept; they share its capacity.
func (s *Service) Import(ctx context.Context, sessionID string, in []NewTopic) ([]models.Topic, error) {
	if err := validation.Struct(importBatch{Topics: in}); err != nil {
		return nil, err
	}
	out := make([]models.Topic, 0, len(in))
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Sessions().Get(ctx, sessionID); err != nil {
			return err
		}
		for i, nt := range in {
			t := fromInput(sessionID, nt, models.TopicStatusApproved)
			if err := tx.Topics().Create(ctx, &t); err != nil {
				return fmt.Errorf("import topic %d: %w", i, err)
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update rewrites a draft topic.
func (s *Service) Update(ctx context.Context, id string, in UpdateTopic) (models.Topic, error) {
	if err := validation.Struct(in); err != nil {
		return models.Topic{}, err
	}
	return s.mutate(ctx, id, func(t *models.Topic) error {
		if t.Status != models.TopicStatusDraft {
			return ErrTopicNotDraft
		}
		t.Title = in.Title
		t.Summary = in.Summary
		t.Objectives = in.Objectives
		t.ExpectedResults = in.ExpectedResults
		t.Field = in.Field
		t.MaxStudents = in.MaxStudents
		return nil
	})
}

// Approve opens a draft topic for registration.
func (s *Service) Approve(ctx context.Context, id string) (models.Topic, error) {
	return s.mutate(ctx, id, func(t *models.Topic) error {
		if t.Status != models.TopicStatusDraft {
			return ErrTopicNotDraft
		}
		t.Status = models.TopicStatusApproved
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, id string, fn func(t *models.Topic) error) (models.Topic, error) {
	var out models.Topic
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		t, err := tx.Topics().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(&t); err != nil {
			return err
		}
		if err := tx.Topics().Update(ctx, &t); err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

// Delete removes a topic record unless a registration is bound to its key.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.WithinTx(ctx, func(tx store.Tx) error {
		t, err := tx.Topics().Get(ctx, id)
		if err != nil {
			return err
		}
		// the lock keeps a concurrent Register from binding while we check
		if _, err := tx.Topics().LockByKey(ctx, t.Key()); err != nil {
			return err
		}
		n, err := tx.Registrations().CountBound(ctx, t.Key())
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrTopicInUse
		}
		return tx.Topics().Delete(ctx, id)
	})
}

func (s *Service) Get(ctx context.Context, id string) (models.Topic, error) {
	return s.store.Topics().Get(ctx, id)
}

func (s *Service) List(ctx context.Context, sessionID string) ([]models.Topic, error) {
	return s.store.Topics().List(ctx, sessionID)
}

// ListAvailable returns the approved topics of a session plus the taken ones
// that still have room.
func (s *Service) ListAvailable(ctx context.Context, sessionID string) ([]Availability, error) {
	topics, err := s.store.Topics().List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	occupancy := make(map[models.TopicKey]int)
	out := make([]Availability, 0, len(topics))
	for _, t := range topics {
		if t.Status == models.TopicStatusDraft {
			continue
		}
		n, ok := occupancy[t.Key()]
		if !ok {
			n, err = s.store.Registrations().CountBound(ctx, t.Key())
			if err != nil {
				return nil, err
			}
			occupancy[t.Key()] = n
		}
		remaining := t.MaxStudents - n
		if remaining < 0 {
			remaining = 0
		}
		if t.Status == models.TopicStatusTaken && remaining == 0 {
			continue
		}
		out = append(out, Availability{Topic: t, Occupancy: n, Remaining: remaining})
	}
	return out, nil
}

func fromInput(sessionID string, in NewTopic, status models.TopicStatus) models.Topic {
	return models.Topic{
		SessionID:       sessionID,
		SupervisorID:    in.SupervisorID,
		SupervisorName:  in.SupervisorName,
		Title:           in.Title,
		Summary:         in.Summary,
		Objectives:      in.Objectives,
		ExpectedResults: in.ExpectedResults,
		Field:           in.Field,
		MaxStudents:     in.MaxStudents,
		Status:          status,
	}
}
