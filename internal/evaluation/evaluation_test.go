package evaluation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
	"github.com/zaqqye/defense_backend_v1/internal/store/memstore"
	"github.com/zaqqye/defense_backend_v1/internal/validation"
)

type fixture struct {
	svc    *Service
	reg    models.Registration
	rubric models.Rubric
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	reg := models.Registration{SessionID: "session-a", StudentID: "S1", SupervisorID: "sup-1", InternshipSupervisorID: "mentor-1"}
	require.NoError(t, st.Registrations().Create(ctx, &reg))
	rubric := models.Rubric{
		Name:           "Council",
		EvaluationType: models.EvaluationTypeGraduation,
		Version:        1,
		Criteria: datatypes.NewJSONType([]models.Criterion{
			{ID: "C1", Name: "Method", MaxScore: 5, PI: "PI1", CLO: "CLO1"},
			{ID: "C2", Name: "Delivery", MaxScore: 10},
		}),
	}
	require.NoError(t, st.Rubrics().Create(ctx, &rubric))
	return fixture{svc: NewService(st), reg: reg, rubric: rubric}
}

func (f fixture) sheet(scores ...models.Score) NewEvaluation {
	return NewEvaluation{
		RegistrationID: f.reg.ID,
		RubricID:       f.rubric.ID,
		EvaluationType: string(models.EvaluationTypeGraduation),
		Scores:         scores,
	}
}

func TestUpsertCreatesThenRescores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	member := Evaluator{ID: "council-1", Role: models.EvaluatorCouncil}

	first, created, err := f.svc.Upsert(ctx, member, f.sheet(models.Score{CriterionID: "C1", Score: 4}))
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.svc.Upsert(ctx, member, f.sheet(models.Score{CriterionID: "C1", Score: 5}, models.Score{CriterionID: "C2", Score: 7}))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.ScoreList(), 2)

	got, err := f.svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.ScoreList()[0].Score)
}

func TestEvaluatorsOwnTheirSheets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, _, err := f.svc.Upsert(ctx, Evaluator{ID: "council-1", Role: models.EvaluatorCouncil}, f.sheet(models.Score{CriterionID: "C1", Score: 1}))
	require.NoError(t, err)
	b, created, err := f.svc.Upsert(ctx, Evaluator{ID: "council-2", Role: models.EvaluatorCouncil}, f.sheet(models.Score{CriterionID: "C1", Score: 5}))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, a.ID, b.ID)

	untouched, err := f.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, untouched.ScoreList()[0].Score)

	all, err := f.svc.ListByRegistrations(ctx, []string{f.reg.ID}, models.EvaluationTypeGraduation, f.rubric.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := f.svc.ListByRegistrations(ctx, nil, "", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSupervisorAndCompanyMustBeAssigned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	score := models.Score{CriterionID: "C1", Score: 3}

	_, _, err := f.svc.Upsert(ctx, Evaluator{ID: "sup-2", Role: models.EvaluatorSupervisor}, f.sheet(score))
	assert.ErrorIs(t, err, ErrNotAssigned)
	_, _, err = f.svc.Upsert(ctx, Evaluator{ID: "sup-1", Role: models.EvaluatorSupervisor}, f.sheet(score))
	assert.NoError(t, err)

	_, _, err = f.svc.Upsert(ctx, Evaluator{ID: "mentor-2", Role: models.EvaluatorCompany}, f.sheet(score))
	assert.ErrorIs(t, err, ErrNotAssigned)

	_, _, err = f.svc.Upsert(ctx, Evaluator{ID: "x"}, f.sheet(score))
	assert.ErrorIs(t, err, ErrInvalidEvaluator)
}

func TestScoresCheckedAgainstRubric(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	member := Evaluator{ID: "council-1", Role: models.EvaluatorCouncil}

	cases := map[string]struct {
		in    NewEvaluation
		field string
	}{
		"above max":     {f.sheet(models.Score{CriterionID: "C1", Score: 6}), "scores[0].score"},
		"negative":      {f.sheet(models.Score{CriterionID: "C2", Score: -1}), "scores[0].score"},
		"unknown":       {f.sheet(models.Score{CriterionID: "C9", Score: 1}), "scores[0].criterion_id"},
		"scored twice":  {f.sheet(models.Score{CriterionID: "C1", Score: 1}, models.Score{CriterionID: "C1", Score: 2}), "scores[1].criterion_id"},
		"no scores":     {f.sheet(), "scores"},
		"type mismatch": {NewEvaluation{RegistrationID: f.reg.ID, RubricID: f.rubric.ID, EvaluationType: "internship", Scores: []models.Score{{CriterionID: "C1", Score: 1}}}, "rubric_id"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := f.svc.Upsert(ctx, member, tc.in)
			var vErr *validation.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Map(), tc.field)
		})
	}

	_, _, err := f.svc.Upsert(ctx, member, NewEvaluation{RegistrationID: "missing", RubricID: f.rubric.ID, EvaluationType: "graduation", Scores: []models.Score{{CriterionID: "C1", Score: 1}}})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
