// Package rubric stores versioned scoring rubrics. Rubrics are never edited in
// place: a revision is a new record in the same lineage, so evaluations keep
// resolving the criteria they were scored against.
package rubric

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/outcomes"
	"github.com/zaqqye/defense_backend_v1/internal/store"
	"github.com/zaqqye/defense_backend_v1/internal/validation"
)

type NewRubric struct {
	Name           string             `json:"name" validate:"notblank,max=255"`
	EvaluationType string             `json:"evaluation_type" validate:"required,oneof=graduation internship"`
	Criteria       []models.Criterion `json:"criteria" validate:"required,min=1,dive"`
}

type Revision struct {
	Criteria []models.Criterion `json:"criteria" validate:"required,min=1,dive"`
}

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

func (s *Service) Create(ctx context.Context, in NewRubric) (models.Rubric, error) {
	if err := validation.Struct(in); err != nil {
		return models.Rubric{}, err
	}
	if err := checkCriteria(in.Criteria); err != nil {
		return models.Rubric{}, err
	}
	r := models.Rubric{
		Name:           in.Name,
		EvaluationType: models.EvaluationType(in.EvaluationType),
		Version:        1,
		Criteria:       datatypes.NewJSONType(in.Criteria),
	}
	if err := s.store.Rubrics().Create(ctx, &r); err != nil {
		return models.Rubric{}, err
	}
	return r, nil
}

// Revise stores criteria as the next version of the rubric's lineage.
func (s *Service) Revise(ctx context.Context, id string, in Revision) (models.Rubric, error) {
	if err := validation.Struct(in); err != nil {
		return models.Rubric{}, err
	}
	if err := checkCriteria(in.Criteria); err != nil {
		return models.Rubric{}, err
	}
	var out models.Rubric
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		base, err := tx.Rubrics().Get(ctx, id)
		if err != nil {
			return err
		}
		latest, err := tx.Rubrics().LatestVersion(ctx, base.LineageID)
		if err != nil {
			return err
		}
		out = models.Rubric{
			LineageID:      base.LineageID,
			Name:           base.Name,
			EvaluationType: base.EvaluationType,
			Version:        latest + 1,
			Criteria:       datatypes.NewJSONType(in.Criteria),
		}
		return tx.Rubrics().Create(ctx, &out)
	})
	if err != nil {
		return models.Rubric{}, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Rubric, error) {
	return s.store.Rubrics().Get(ctx, id)
}

// List returns every stored version; an empty evaluationType lists all types.
func (s *Service) List(ctx context.Context, evaluationType models.EvaluationType) ([]models.Rubric, error) {
	return s.store.Rubrics().List(ctx, evaluationType)
}

// checkCriteria rejects repeated criterion ids and CLO names that would clash
// with the fixed columns of an outcome report row.
func checkCriteria(criteria []models.Criterion) error {
	seen := make(map[string]bool, len(criteria))
	var fields []validation.FieldError
	for i, c := range criteria {
		if seen[c.ID] {
			fields = append(fields, validation.FieldError{
				Field: fmt.Sprintf("criteria[%d].id", i),
				Error: fmt.Sprintf("criterion id %q is used twice", c.ID),
			})
		}
		seen[c.ID] = true
		if outcomes.ReservedColumn(c.CLO) {
			fields = append(fields, validation.FieldError{
				Field: fmt.Sprintf("criteria[%d].clo", i),
				Error: fmt.Sprintf("clo %q is a reserved report column", c.CLO),
			})
		}
	}
	if len(fields) > 0 {
		return validation.New("invalid criteria", fields...)
	}
	return nil
}
