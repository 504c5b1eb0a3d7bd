package allocation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
	"github.com/zaqqye/defense_backend_v1/internal/store/memstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	st      *memstore.Store
	eng     *Engine
	session models.DefenseSession
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	s := models.DefenseSession{Name: "Spring defense", Type: models.SessionTypeMixed, Status: models.SessionStatusOngoing}
	require.NoError(t, st.Sessions().Create(context.Background(), &s))
	return &fixture{st: st, eng: NewEngine(st, zap.NewNop()), session: s}
}

func (f *fixture) topic(t *testing.T, title string, max int) models.Topic {
	t.Helper()
	tp := models.Topic{
		SessionID:       f.session.ID,
		SupervisorID:    "sup-1",
		SupervisorName:  "Dr. Lan",
		Title:           title,
		Summary:         "summary of " + title,
		Objectives:      "objectives",
		ExpectedResults: "results",
		MaxStudents:     max,
		Status:          models.TopicStatusApproved,
	}
	require.NoError(t, f.st.Topics().Create(context.Background(), &tp))
	return tp
}

func (f *fixture) student(t *testing.T, studentID string) models.Registration {
	t.Helper()
	reg := models.Registration{SessionID: f.session.ID, StudentID: studentID, StudentName: "Student " + studentID}
	require.NoError(t, f.st.Registrations().Create(context.Background(), &reg))
	return reg
}

func (f *fixture) topicStatus(t *testing.T, id string) models.TopicStatus {
	t.Helper()
	tp, err := f.st.Topics().Get(context.Background(), id)
	require.NoError(t, err)
	return tp.Status
}

func TestRegisterCopiesTopicFields(t *testing.T) {
	f := newFixture(t)
	tp := f.topic(t, "Edge caching for LMS", 2)
	reg := f.student(t, "s1")

	got, err := f.eng.Register(context.Background(), tp.ID, reg.ID)
	require.NoError(t, err)

	require.NotNil(t, got.TopicID)
	assert.Equal(t, tp.ID, *got.TopicID)
	assert.Equal(t, tp.Title, got.ProjectTitle)
	assert.Equal(t, tp.Summary, got.Summary)
	assert.Equal(t, tp.Objectives, got.Objectives)
	assert.Equal(t, tp.ExpectedResults, got.ExpectedResults)
	assert.Equal(t, tp.SupervisorID, got.SupervisorID)
	assert.Equal(t, tp.SupervisorName, got.SupervisorName)
	assert.Equal(t, models.ProjectStatusPending, got.ProjectRegistrationStatus)
	assert.Equal(t, models.TopicStatusApproved, f.topicStatus(t, tp.ID))

	stored, err := f.st.Registrations().Get(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ProjectTitle, stored.ProjectTitle)
}

func TestLastSlotFlipsTopicStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tp := f.topic(t, "Solo topic", 1)
	a := f.student(t, "a")
	b := f.student(t, "b")

	_, err := f.eng.Register(ctx, tp.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopicStatusTaken, f.topicStatus(t, tp.ID))

	_, err = f.eng.Register(ctx, tp.ID, b.ID)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	require.NoError(t, f.eng.Cancel(ctx, a.ID))
	assert.Equal(t, models.TopicStatusApproved, f.topicStatus(t, tp.ID))

	_, err = f.eng.Register(ctx, tp.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopicStatusTaken, f.topicStatus(t, tp.ID))
}

func TestConcurrentRegisterNeverExceedsCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tp := f.topic(t, "Popular topic", 3)

	regs := make([]models.Registration, 8)
	for i := range regs {
		regs[i] = f.student(t, fmt.Sprintf("s%02d", i))
	}

	var ok, full int32
	var g errgroup.Group
	for _, reg := range regs {
		reg := reg
		g.Go(func() error {
			_, err := f.eng.Register(ctx, tp.ID, reg.ID)
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case assert.ErrorIs(t, err, ErrCapacityExceeded):
				atomic.AddInt32(&full, 1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 3, ok)
	assert.EqualValues(t, 5, full)

	n, err := f.st.Registrations().CountBound(ctx, tp.Key())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, models.TopicStatusTaken, f.topicStatus(t, tp.ID))
}

func TestCancelRestoresRegistration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tp := f.topic(t, "Reversible", 2)
	reg := f.student(t, "s1")

	before, err := f.st.Registrations().Get(ctx, reg.ID)
	require.NoError(t, err)

	_, err = f.eng.Register(ctx, tp.ID, reg.ID)
	require.NoError(t, err)
	require.NoError(t, f.eng.Cancel(ctx, reg.ID))

	after, err := f.st.Registrations().Get(ctx, reg.ID)
	require.NoError(t, err)

	before.Version, after.Version = 0, 0
	before.UpdatedAt = after.UpdatedAt
	assert.Equal(t, before, after)
	assert.Equal(t, models.TopicStatusApproved, f.topicStatus(t, tp.ID))
}

func TestDuplicateTopicRecordsShareCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.topic(t, "Imported twice", 2)
	second := f.topic(t, "Imported twice", 2)
	require.Equal(t, first.Key(), second.Key())

	_, err := f.eng.Register(ctx, first.ID, f.student(t, "a").ID)
	require.NoError(t, err)
	_, err = f.eng.Register(ctx, second.ID, f.student(t, "b").ID)
	require.NoError(t, err)

	_, err = f.eng.Register(ctx, first.ID, f.student(t, "c").ID)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	assert.Equal(t, models.TopicStatusTaken, f.topicStatus(t, first.ID))
	assert.Equal(t, models.TopicStatusTaken, f.topicStatus(t, second.ID))
}

func TestRejectedRegistrationKeepsItsSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tp := f.topic(t, "Strict", 1)
	a := f.student(t, "a")

	bound, err := f.eng.Register(ctx, tp.ID, a.ID)
	require.NoError(t, err)
	bound.ProjectRegistrationStatus = models.ProjectStatusRejected
	require.NoError(t, f.st.Registrations().Update(ctx, &bound))

	_, err = f.eng.Register(ctx, tp.ID, f.student(t, "b").ID)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestRegisterRefusals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tp := f.topic(t, "Open", 3)

	t.Run("already registered", func(t *testing.T) {
		reg := f.student(t, "dup")
		_, err := f.eng.Register(ctx, tp.ID, reg.ID)
		require.NoError(t, err)
		_, err = f.eng.Register(ctx, tp.ID, reg.ID)
		assert.ErrorIs(t, err, ErrAlreadyRegistered)
	})

	t.Run("draft topic", func(t *testing.T) {
		draft := models.Topic{SessionID: f.session.ID, SupervisorID: "sup-2", Title: "Not yet", MaxStudents: 1, Status: models.TopicStatusDraft}
		require.NoError(t, f.st.Topics().Create(ctx, &draft))
		_, err := f.eng.Register(ctx, draft.ID, f.student(t, "draft").ID)
		assert.ErrorIs(t, err, ErrTopicUnavailable)
	})

	t.Run("other session", func(t *testing.T) {
		other := models.DefenseSession{Name: "Autumn", Type: models.SessionTypeGraduation, Status: models.SessionStatusUpcoming}
		require.NoError(t, f.st.Sessions().Create(ctx, &other))
		reg := models.Registration{SessionID: other.ID, StudentID: "x"}
		require.NoError(t, f.st.Registrations().Create(ctx, &reg))
		_, err := f.eng.Register(ctx, tp.ID, reg.ID)
		assert.ErrorIs(t, err, ErrSessionMismatch)
	})

	t.Run("unknown topic", func(t *testing.T) {
		_, err := f.eng.Register(ctx, "missing-topic", f.student(t, "lost").ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("cancel without topic", func(t *testing.T) {
		err := f.eng.Cancel(ctx, f.student(t, "idle").ID)
		assert.ErrorIs(t, err, ErrNotRegistered)
	})
}

// flakyStore fails the first n transactions with ErrStaleWrite.
type flakyStore struct {
	store.Store
	failures int32
	calls    int32
}

func (s *flakyStore) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	atomic.AddInt32(&s.calls, 1)
	if atomic.AddInt32(&s.failures, -1) >= 0 {
		return store.ErrStaleWrite
	}
	return s.Store.WithinTx(ctx, fn)
}

func TestStaleWritesAreRetried(t *testing.T) {
	ctx := context.Background()

	t.Run("recovers within budget", func(t *testing.T) {
		f := newFixture(t)
		tp := f.topic(t, "Contended", 1)
		reg := f.student(t, "s1")
		flaky := &flakyStore{Store: f.st, failures: 2}
		eng := NewEngine(flaky, zap.NewNop(), WithMaxAttempts(3))

		_, err := eng.Register(ctx, tp.ID, reg.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 3, atomic.LoadInt32(&flaky.calls))
	})

	t.Run("register surfaces capacity exceeded", func(t *testing.T) {
		f := newFixture(t)
		tp := f.topic(t, "Contended", 1)
		reg := f.student(t, "s1")
		flaky := &flakyStore{Store: f.st, failures: 10}
		eng := NewEngine(flaky, zap.NewNop(), WithMaxAttempts(3))

		_, err := eng.Register(ctx, tp.ID, reg.ID)
		assert.ErrorIs(t, err, ErrCapacityExceeded)
		assert.EqualValues(t, 3, atomic.LoadInt32(&flaky.calls))
	})

	t.Run("cancel surfaces contention", func(t *testing.T) {
		f := newFixture(t)
		tp := f.topic(t, "Contended", 1)
		reg := f.student(t, "s1")
		_, err := f.eng.Register(ctx, tp.ID, reg.ID)
		require.NoError(t, err)

		eng := NewEngine(&flakyStore{Store: f.st, failures: 10}, zap.NewNop(), WithMaxAttempts(2))
		assert.ErrorIs(t, eng.Cancel(ctx, reg.ID), ErrContention)
	})
}

func TestGuardsVetTheLockedRegistration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tp := f.topic(t, "Guarded", 1)
	reg := f.student(t, "s1")

	_, err := f.eng.Register(ctx, tp.ID, reg.ID)
	require.NoError(t, err)
	bound, err := f.st.Registrations().Get(ctx, reg.ID)
	require.NoError(t, err)
	bound.ProjectRegistrationStatus = models.ProjectStatusApproved
	require.NoError(t, f.st.Registrations().Update(ctx, &bound))

	errLocked := errors.New("approved bindings are locked")
	noApproved := func(r models.Registration) error {
		if r.ProjectRegistrationStatus == models.ProjectStatusApproved {
			return errLocked
		}
		return nil
	}

	err = f.eng.Cancel(ctx, reg.ID, noApproved)
	assert.ErrorIs(t, err, errLocked)

	still, err := f.st.Registrations().Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, still.TopicBound())
	assert.Equal(t, models.ProjectStatusApproved, still.ProjectRegistrationStatus)
	assert.Equal(t, models.TopicStatusTaken, f.topicStatus(t, tp.ID))

	require.NoError(t, f.eng.Cancel(ctx, reg.ID))
	assert.Equal(t, models.TopicStatusApproved, f.topicStatus(t, tp.ID))
}
