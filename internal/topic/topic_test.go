package topic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaqqye/defense_backend_v1/internal/allocation"
	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
	"github.com/zaqqye/defense_backend_v1/internal/store/memstore"
	"github.com/zaqqye/defense_backend_v1/internal/validation"
)

func setup(t *testing.T) (*Service, *memstore.Store, models.DefenseSession) {
	t.Helper()
	st := memstore.New()
	sess := models.DefenseSession{Name: "Spring", Type: models.SessionTypeGraduation, Status: models.SessionStatusOngoing}
	require.NoError(t, st.Sessions().Create(context.Background(), &sess))
	return NewService(st), st, sess
}

func offering(title string, max int) NewTopic {
	return NewTopic{SupervisorID: "sup-1", SupervisorName: "Dr. Mai", Title: title, Summary: "s", MaxStudents: max}
}

func student(t *testing.T, st store.Store, sessionID, id string) models.Registration {
	t.Helper()
	reg := models.Registration{SessionID: sessionID, StudentID: id, StudentName: id}
	require.NoError(t, st.Registrations().Create(context.Background(), &reg))
	return reg
}

func TestDraftLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, sess := setup(t)

	draft, err := svc.Create(ctx, sess.ID, offering("Graph search", 2))
	require.NoError(t, err)
	assert.Equal(t, models.TopicStatusDraft, draft.Status)

	edited, err := svc.Update(ctx, draft.ID, UpdateTopic{Title: "Graph search at scale", MaxStudents: 3})
	require.NoError(t, err)
	assert.Equal(t, "Graph search at scale", edited.Title)
	assert.Equal(t, 3, edited.MaxStudents)

	approved, err := svc.Approve(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopicStatusApproved, approved.Status)

	_, err = svc.Update(ctx, draft.ID, UpdateTopic{Title: "Too late", MaxStudents: 1})
	assert.ErrorIs(t, err, ErrTopicNotDraft)
	_, err = svc.Approve(ctx, draft.ID)
	assert.ErrorIs(t, err, ErrTopicNotDraft)
}

func TestCreateChecksInput(t *testing.T) {
	ctx := context.Background()
	svc, _, sess := setup(t)

	_, err := svc.Create(ctx, "missing-session", offering("x", 1))
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Create(ctx, sess.ID, offering("x", 0))
	var vErr *validation.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Map(), "max_students")
}

func TestImportKeepsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, _, sess := setup(t)

	created, err := svc.Import(ctx, sess.ID, []NewTopic{offering("Compilers", 2), offering("Compilers", 2), offering("Robotics", 1)})
	require.NoError(t, err)
	require.Len(t, created, 3)
	for _, tp := range created {
		assert.Equal(t, models.TopicStatusApproved, tp.Status)
	}
	assert.Equal(t, created[0].Key(), created[1].Key())

	all, err := svc.List(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.Import(ctx, sess.ID, []NewTopic{offering("ok", 1), {Title: "no supervisor", MaxStudents: 1}})
	var vErr *validation.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Map(), "topics[1].supervisor_id")

	all, err = svc.List(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3, "a rejected batch stores nothing")
}

func TestListAvailable(t *testing.T) {
	ctx := context.Background()
	svc, st, sess := setup(t)
	eng := allocation.NewEngine(st, nil)

	created, err := svc.Import(ctx, sess.ID, []NewTopic{offering("Solo", 1), offering("Pair", 2), offering("Pair", 2)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, sess.ID, offering("Draft", 1))
	require.NoError(t, err)

	_, err = eng.Register(ctx, created[0].ID, student(t, st, sess.ID, "a").ID)
	require.NoError(t, err)
	_, err = eng.Register(ctx, created[1].ID, student(t, st, sess.ID, "b").ID)
	require.NoError(t, err)

	avail, err := svc.ListAvailable(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, avail, 2)
	for _, a := range avail {
		assert.Equal(t, "Pair", a.Title)
		assert.Equal(t, 1, a.Occupancy)
		assert.Equal(t, 1, a.Remaining)
	}

	_, err = eng.Register(ctx, created[2].ID, student(t, st, sess.ID, "c").ID)
	require.NoError(t, err)
	avail, err = svc.ListAvailable(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, avail)
}

func TestDeleteRefusedWhileBound(t *testing.T) {
	ctx := context.Background()
	svc, st, sess := setup(t)
	eng := allocation.NewEngine(st, nil)

	created, err := svc.Import(ctx, sess.ID, []NewTopic{offering("Twin", 2), offering("Twin", 2)})
	require.NoError(t, err)
	reg := student(t, st, sess.ID, "a")
	_, err = eng.Register(ctx, created[0].ID, reg.ID)
	require.NoError(t, err)

	// the duplicate record shares the binding
	assert.ErrorIs(t, svc.Delete(ctx, created[1].ID), ErrTopicInUse)

	require.NoError(t, eng.Cancel(ctx, reg.ID))
	require.NoError(t, svc.Delete(ctx, created[1].ID))

	_, err = svc.Get(ctx, created[1].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
