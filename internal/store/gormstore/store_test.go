package gormstore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"

	"github.com/zaqqye/defense_backend_v1/internal/allocation"
	"github.com/zaqqye/defense_backend_v1/internal/database"
	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
	"github.com/zaqqye/defense_backend_v1/internal/store/gormstore"
)

func newStore(t *testing.T) *gormstore.Store {
	t.Helper()
	db, err := database.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), true)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the shared in-memory database from reporting
	// table locks; transactions queue for it instead
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return gormstore.New(db)
}

func seedSession(t *testing.T, st store.Store) models.DefenseSession {
	t.Helper()
	s := models.DefenseSession{Name: "Spring", Type: models.SessionTypeMixed, Status: models.SessionStatusOngoing}
	require.NoError(t, st.Sessions().Create(context.Background(), &s))
	return s
}

func seedTopic(t *testing.T, st store.Store, sessionID, title string, max int) models.Topic {
	t.Helper()
	tp := models.Topic{SessionID: sessionID, SupervisorID: "sup-1", SupervisorName: "Dr. Lan", Title: title, MaxStudents: max, Status: models.TopicStatusApproved}
	require.NoError(t, st.Topics().Create(context.Background(), &tp))
	return tp
}

func seedRegistration(t *testing.T, st store.Store, sessionID, studentID string) models.Registration {
	t.Helper()
	reg := models.Registration{SessionID: sessionID, StudentID: studentID, StudentName: "Student " + studentID}
	require.NoError(t, st.Registrations().Create(context.Background(), &reg))
	return reg
}

func TestRegistrationDefaultsAndNullStatus(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	sess := seedSession(t, st)
	reg := seedRegistration(t, st, sess.ID, "s1")

	got, err := st.Registrations().Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusNone, got.ProjectRegistrationStatus)
	assert.Equal(t, models.TrackStatusNotSubmitted, got.ProposalStatus)
	assert.Equal(t, models.TrackStatusNotSubmitted, got.PostDefenseStatus)
	assert.Nil(t, got.TopicID)
	assert.Equal(t, 1, got.Version)

	dup := models.Registration{SessionID: sess.ID, StudentID: "s1"}
	assert.ErrorIs(t, st.Registrations().Create(ctx, &dup), store.ErrConflict)
}

func TestVersionGuardedUpdates(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	sess := seedSession(t, st)
	tp := seedTopic(t, st, sess.ID, "Guarded", 2)

	first, err := st.Topics().Get(ctx, tp.ID)
	require.NoError(t, err)
	second := first

	first.Status = models.TopicStatusTaken
	require.NoError(t, st.Topics().Update(ctx, &first))
	assert.Equal(t, 2, first.Version)

	second.Status = models.TopicStatusApproved
	err = st.Topics().Update(ctx, &second)
	assert.ErrorIs(t, err, store.ErrStaleWrite)
	assert.Equal(t, 1, second.Version)

	ghost := models.Topic{ID: "ghost-topic", Version: 1}
	assert.ErrorIs(t, st.Topics().Update(ctx, &ghost), store.ErrNotFound)

	reg := seedRegistration(t, st, sess.ID, "s1")
	stale := reg
	reg.ProposalStatus = models.TrackStatusPendingApproval
	require.NoError(t, st.Registrations().Update(ctx, &reg))
	stale.ReportStatus = models.TrackStatusPendingApproval
	assert.ErrorIs(t, st.Registrations().Update(ctx, &stale), store.ErrStaleWrite)
}

func TestCountBoundUsesIdentityKey(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	sess := seedSession(t, st)
	a := seedTopic(t, st, sess.ID, "Twin", 3)
	b := seedTopic(t, st, sess.ID, "Twin", 3)
	require.Equal(t, a.Key(), b.Key())

	locked, err := st.Topics().LockByKey(ctx, a.Key())
	require.NoError(t, err)
	assert.Len(t, locked, 2)

	bound := seedRegistration(t, st, sess.ID, "s1")
	topicID := b.ID
	bound.TopicID = &topicID
	bound.ProjectTitle = b.Title
	bound.SupervisorID = b.SupervisorID
	bound.ProjectRegistrationStatus = models.ProjectStatusRejected
	require.NoError(t, st.Registrations().Update(ctx, &bound))
	seedRegistration(t, st, sess.ID, "s2")

	n, err := st.Registrations().CountBound(ctx, a.Key())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	sess := seedSession(t, st)

	boom := fmt.Errorf("boom")
	err := st.WithinTx(ctx, func(tx store.Tx) error {
		tp := models.Topic{SessionID: sess.ID, SupervisorID: "x", Title: "never", MaxStudents: 1, Status: models.TopicStatusDraft}
		if err := tx.Topics().Create(ctx, &tp); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := st.Topics().List(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEvaluationsAndRubrics(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	rb := models.Rubric{Name: "Council", EvaluationType: models.EvaluationTypeGraduation, Version: 1,
		Criteria: datatypes.NewJSONType([]models.Criterion{{ID: "C1", Name: "Method", MaxScore: 5, PI: "PI1", CLO: "CLO1"}})}
	require.NoError(t, st.Rubrics().Create(ctx, &rb))
	latest, err := st.Rubrics().LatestVersion(ctx, rb.LineageID)
	require.NoError(t, err)
	assert.Equal(t, 1, latest)

	twin := models.Rubric{LineageID: rb.LineageID, Name: "Council", EvaluationType: models.EvaluationTypeGraduation, Version: 1,
		Criteria: rb.Criteria}
	assert.ErrorIs(t, st.Rubrics().Create(ctx, &twin), store.ErrConflict)
	unknown, err := st.Rubrics().LatestVersion(ctx, "lineage-none")
	require.NoError(t, err)
	assert.Zero(t, unknown)

	loaded, err := st.Rubrics().Get(ctx, rb.ID)
	require.NoError(t, err)
	c, ok := loaded.Criterion("C1")
	require.True(t, ok)
	assert.Equal(t, "CLO1", c.CLO)

	ev := models.Evaluation{RegistrationID: "reg-a", EvaluatorID: "m1", EvaluatorRole: models.EvaluatorCouncil,
		EvaluationType: models.EvaluationTypeGraduation, RubricID: rb.ID,
		Scores: datatypes.NewJSONType([]models.Score{{CriterionID: "C1", Score: 4}})}
	require.NoError(t, st.Evaluations().Create(ctx, &ev))

	again := ev
	again.ID = ""
	assert.ErrorIs(t, st.Evaluations().Create(ctx, &again), store.ErrConflict)

	found, err := st.Evaluations().Find(ctx, store.EvaluationKey{EvaluatorID: "m1", RegistrationID: "reg-a", RubricID: rb.ID, EvaluationType: models.EvaluationTypeGraduation})
	require.NoError(t, err)
	found.Scores = datatypes.NewJSONType([]models.Score{{CriterionID: "C1", Score: 5}})
	require.NoError(t, st.Evaluations().UpdateScores(ctx, &found))
	assert.Equal(t, 5.0, found.ScoreList()[0].Score)

	list, err := st.Evaluations().List(ctx, store.EvaluationFilter{RegistrationIDs: []string{"reg-a"}, RubricID: rb.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	empty, err := st.Evaluations().List(ctx, store.EvaluationFilter{RegistrationIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSettingsUpsert(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	s := models.AppSetting{Key: models.SettingAllowEditApproved, Value: "false"}
	require.NoError(t, st.Settings().Put(ctx, &s))
	s.Value = "true"
	require.NoError(t, st.Settings().Put(ctx, &s))

	got, err := st.Settings().Get(ctx, models.SettingAllowEditApproved)
	require.NoError(t, err)
	assert.Equal(t, "true", got.Value)

	_, err = st.Settings().Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAllocationOverSQL(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	sess := seedSession(t, st)
	eng := allocation.NewEngine(st, zap.NewNop())

	t.Run("last slot", func(t *testing.T) {
		tp := seedTopic(t, st, sess.ID, "Solo", 1)
		a := seedRegistration(t, st, sess.ID, "solo-a")
		b := seedRegistration(t, st, sess.ID, "solo-b")

		_, err := eng.Register(ctx, tp.ID, a.ID)
		require.NoError(t, err)
		got, err := st.Topics().Get(ctx, tp.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TopicStatusTaken, got.Status)

		_, err = eng.Register(ctx, tp.ID, b.ID)
		assert.ErrorIs(t, err, allocation.ErrCapacityExceeded)

		require.NoError(t, eng.Cancel(ctx, a.ID))
		got, err = st.Topics().Get(ctx, tp.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TopicStatusApproved, got.Status)

		cancelled, err := st.Registrations().Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Nil(t, cancelled.TopicID)
		assert.Equal(t, models.ProjectStatusNone, cancelled.ProjectRegistrationStatus)

		_, err = eng.Register(ctx, tp.ID, b.ID)
		require.NoError(t, err)
	})

	t.Run("concurrent", func(t *testing.T) {
		tp := seedTopic(t, st, sess.ID, "Crowded", 3)
		regs := make([]models.Registration, 8)
		for i := range regs {
			regs[i] = seedRegistration(t, st, sess.ID, fmt.Sprintf("crowd-%d", i))
		}

		results := make([]error, len(regs))
		var g errgroup.Group
		for i, reg := range regs {
			i, reg := i, reg
			g.Go(func() error {
				_, results[i] = eng.Register(ctx, tp.ID, reg.ID)
				return nil
			})
		}
		require.NoError(t, g.Wait())

		ok := 0
		for _, err := range results {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, allocation.ErrCapacityExceeded)
		}
		assert.Equal(t, 3, ok)

		n, err := st.Registrations().CountBound(ctx, tp.Key())
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}
