package session

import (
	"context"
	"time"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
	"github.com/zaqqye/defense_backend_v1/internal/validation"
)

type NewSession struct {
	Name               string     `json:"name" validate:"notblank,max=255"`
	Type               string     `json:"type" validate:"required,oneof=graduation internship mixed"`
	Status             string     `json:"status" validate:"omitempty,oneof=upcoming ongoing completed"`
	StartDate          *time.Time `json:"start_date"`
	EndDate            *time.Time `json:"end_date"`
	ExpectedReportDate *time.Time `json:"expected_report_date"`
}

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

func (s *Service) Create(ctx context.Context, in NewSession) (models.DefenseSession, error) {
	if err := validation.Struct(in); err != nil {
		return models.DefenseSession{}, err
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return models.DefenseSession{}, validation.New("invalid session dates",
			validation.FieldError{Field: "end_date", Error: "end_date must not be before start_date"})
	}
	sess := models.DefenseSession{
		Name:               in.Name,
		Type:               models.SessionType(in.Type),
		Status:             models.SessionStatus(in.Status),
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		ExpectedReportDate: in.ExpectedReportDate,
	}
	if sess.Status == "" {
		sess.Status = models.SessionStatusUpcoming
	}
	if err := s.store.Sessions().Create(ctx, &sess); err != nil {
		return models.DefenseSession{}, err
	}
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.DefenseSession, error) {
	return s.store.Sessions().Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.DefenseSession, error) {
	return s.store.Sessions().List(ctx)
}

type statusInput struct {
	Status string `json:"status" validate:"required,oneof=upcoming ongoing completed"`
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) (models.DefenseSession, error) {
	if err := validation.Struct(statusInput{Status: string(status)}); err != nil {
		return models.DefenseSession{}, err
	}
	return s.update(ctx, id, func(sess *models.DefenseSession) { sess.Status = status })
}

// SetExpectedReportDate moves the report window. A nil date closes it.
func (s *Service) SetExpectedReportDate(ctx context.Context, id string, date *time.Time) (models.DefenseSession, error) {
	return s.update(ctx, id, func(sess *models.DefenseSession) { sess.ExpectedReportDate = date })
}

func (s *Service) update(ctx context.Context, id string, mutate func(*models.DefenseSession)) (models.DefenseSession, error) {
	var out models.DefenseSession
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		sess, err := tx.Sessions().Get(ctx, id)
		if err != nil {
			return err
		}
		mutate(&sess)
		if err := tx.Sessions().Update(ctx, &sess); err != nil {
			return err
		}
		out = sess
		return nil
	})
	return out, err
}
