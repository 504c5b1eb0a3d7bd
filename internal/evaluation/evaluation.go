// Package evaluation records rubric scores. Each evaluator owns exactly one
// score sheet per (registration, rubric, evaluation type).
package evaluation

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
	"github.com/zaqqye/defense_backend_v1/internal/validation"
)

var (
	ErrInvalidEvaluator = errors.New("evaluator id and role are required")
	ErrNotAssigned      = errors.New("evaluator is not assigned to this registration")
)

// Evaluator is the authenticated caller entering scores.
type Evaluator struct {
	ID   string
	Role models.EvaluatorRole
}

type NewEvaluation struct {
	RegistrationID string         `json:"registration_id" validate:"required"`
	RubricID       string         `json:"rubric_id" validate:"required"`
	EvaluationType string         `json:"evaluation_type" validate:"required,oneof=graduation internship"`
	Scores         []models.Score `json:"scores" validate:"required,min=1,dive"`
}

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Upsert creates the evaluator's score sheet or replaces its scores. created
// reports which of the two happened.
func (s *Service) Upsert(ctx context.Context, who Evaluator, in NewEvaluation) (ev models.Evaluation, created bool, err error) {
	if who.ID == "" || !who.Role.Valid() {
		return models.Evaluation{}, false, ErrInvalidEvaluator
	}
	if err := validation.Struct(in); err != nil {
		return models.Evaluation{}, false, err
	}

	// a concurrent first write by the same evaluator loses on the unique
	// index; the second attempt finds the row and updates it
	for attempt := 0; attempt < 2; attempt++ {
		ev, created, err = s.upsert(ctx, who, in)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
	}
	return ev, created, err
}

func (s *Service) upsert(ctx context.Context, who Evaluator, in NewEvaluation) (ev models.Evaluation, created bool, err error) {
	err = s.store.WithinTx(ctx, func(tx store.Tx) error {
		reg, err := tx.Registrations().Get(ctx, in.RegistrationID)
		if err != nil {
			return err
		}
		switch who.Role {
		case models.EvaluatorSupervisor:
			if reg.SupervisorID != who.ID {
				return ErrNotAssigned
			}
		case models.EvaluatorCompany:
			if reg.InternshipSupervisorID != who.ID {
				return ErrNotAssigned
			}
		}

		rubric, err := tx.Rubrics().Get(ctx, in.RubricID)
		if err != nil {
			return err
		}
		if err := checkScores(rubric, models.EvaluationType(in.EvaluationType), in.Scores); err != nil {
			return err
		}

		key := store.EvaluationKey{
			EvaluatorID:    who.ID,
			RegistrationID: in.RegistrationID,
			RubricID:       in.RubricID,
			EvaluationType: models.EvaluationType(in.EvaluationType),
		}
		existing, err := tx.Evaluations().Find(ctx, key)
		switch {
		case err == nil:
			existing.Scores = datatypes.NewJSONType(in.Scores)
			if err := tx.Evaluations().UpdateScores(ctx, &existing); err != nil {
				return err
			}
			ev, created = existing, false
			return nil
		case errors.Is(err, store.ErrNotFound):
			ev = models.Evaluation{
				RegistrationID: in.RegistrationID,
				EvaluatorID:    who.ID,
				EvaluatorRole:  who.Role,
				EvaluationType: key.EvaluationType,
				RubricID:       in.RubricID,
				Scores:         datatypes.NewJSONType(in.Scores),
			}
			created = true
			return tx.Evaluations().Create(ctx, &ev)
		default:
			return err
		}
	})
	if err != nil {
		return models.Evaluation{}, false, err
	}
	return ev, created, nil
}

// checkScores validates every score against the rubric it claims to use.
func checkScores(rubric models.Rubric, t models.EvaluationType, scores []models.Score) error {
	var fields []validation.FieldError
	if rubric.EvaluationType != t {
		fields = append(fields, validation.FieldError{
			Field: "rubric_id",
			Error: fmt.Sprintf("rubric is for %s evaluations", rubric.EvaluationType),
		})
	}
	seen := make(map[string]bool, len(scores))
	for i, sc := range scores {
		c, ok := rubric.Criterion(sc.CriterionID)
		switch {
		case !ok:
			fields = append(fields, validation.FieldError{
				Field: fmt.Sprintf("scores[%d].criterion_id", i),
				Error: fmt.Sprintf("criterion %q is not part of the rubric", sc.CriterionID),
			})
		case seen[sc.CriterionID]:
			fields = append(fields, validation.FieldError{
				Field: fmt.Sprintf("scores[%d].criterion_id", i),
				Error: fmt.Sprintf("criterion %q is scored twice", sc.CriterionID),
			})
		case sc.Score < 0 || sc.Score > c.MaxScore:
			fields = append(fields, validation.FieldError{
				Field: fmt.Sprintf("scores[%d].score", i),
				Error: fmt.Sprintf("score must be between 0 and %g", c.MaxScore),
			})
		}
		seen[sc.CriterionID] = true
	}
	if len(fields) > 0 {
		return validation.New("invalid scores", fields...)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Evaluation, error) {
	return s.store.Evaluations().Get(ctx, id)
}

// ListByRegistrations returns the evaluations of the given registrations.
// Empty evaluationType or rubricID match everything.
func (s *Service) ListByRegistrations(ctx context.Context, ids []string, evaluationType models.EvaluationType, rubricID string) ([]models.Evaluation, error) {
	if ids == nil {
		ids = []string{}
	}
	return s.store.Evaluations().List(ctx, store.EvaluationFilter{
		RegistrationIDs: ids,
		EvaluationType:  evaluationType,
		RubricID:        rubricID,
	})
}
