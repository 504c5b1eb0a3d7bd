// Package memstore is an in-memory store.Store. Transactions are serialized
// under one mutex and run against a private copy of the data that is published
// only when the transaction succeeds.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
)

type data struct {
	sessions      map[string]models.DefenseSession
	topics        map[string]models.Topic
	registrations map[string]models.Registration
	evaluations   map[string]models.Evaluation
	rubrics       map[string]models.Rubric
	settings      map[string]models.AppSetting
}

func newData() *data {
	return &data{
		sessions:      map[string]models.DefenseSession{},
		topics:        map[string]models.Topic{},
		registrations: map[string]models.Registration{},
		evaluations:   map[string]models.Evaluation{},
		rubrics:       map[string]models.Rubric{},
		settings:      map[string]models.AppSetting{},
	}
}

// clone copies the maps. Stored values are never mutated in place, so the
// values themselves can be shared between snapshots.
func (d *data) clone() *data {
	c := newData()
	for k, v := range d.sessions {
		c.sessions[k] = v
	}
	for k, v := range d.topics {
		c.topics[k] = v
	}
	for k, v := range d.registrations {
		c.registrations[k] = v
	}
	for k, v := range d.evaluations {
		c.evaluations[k] = v
	}
	for k, v := range d.rubrics {
		c.rubrics[k] = v
	}
	for k, v := range d.settings {
		c.settings[k] = v
	}
	return c
}

type runFunc func(ctx context.Context, fn func(d *data) error) error

type access struct {
	read  runFunc
	write runFunc
	now   func() time.Time
}

type Store struct {
	mu   sync.Mutex
	data *data
	now  func() time.Time

	auto access
}

func New() *Store {
	s := &Store{data: newData(), now: func() time.Time { return time.Now().UTC() }}
	s.auto = access{read: s.readLocked, write: s.commit, now: s.now}
	return s
}

func (s *Store) readLocked(ctx context.Context, fn func(d *data) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) commit(ctx context.Context, fn func(d *data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.data.clone()
	if err := fn(work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.commit(ctx, func(work *data) error {
		direct := func(_ context.Context, f func(d *data) error) error { return f(work) }
		return fn(&txView{access{read: direct, write: direct, now: s.now}})
	})
}

func (s *Store) Sessions() store.SessionRepository           { return sessions{s.auto} }
func (s *Store) Topics() store.TopicRepository               { return topics{s.auto} }
func (s *Store) Registrations() store.RegistrationRepository { return registrations{s.auto} }
func (s *Store) Evaluations() store.EvaluationRepository     { return evaluations{s.auto} }
func (s *Store) Rubrics() store.RubricRepository             { return rubrics{s.auto} }
func (s *Store) Settings() store.SettingRepository           { return settings{s.auto} }

type txView struct{ a access }

func (v *txView) Sessions() store.SessionRepository           { return sessions{v.a} }
func (v *txView) Topics() store.TopicRepository               { return topics{v.a} }
func (v *txView) Registrations() store.RegistrationRepository { return registrations{v.a} }
func (v *txView) Evaluations() store.EvaluationRepository     { return evaluations{v.a} }
func (v *txView) Rubrics() store.RubricRepository             { return rubrics{v.a} }
func (v *txView) Settings() store.SettingRepository           { return settings{v.a} }

// sessions

type sessions struct{ a access }

func (r sessions) Create(ctx context.Context, s *models.DefenseSession) error {
	return r.a.write(ctx, func(d *data) error {
		_ = s.BeforeCreate(nil)
		if _, ok := d.sessions[s.ID]; ok {
			return store.ErrConflict
		}
		now := r.a.now()
		s.CreatedAt, s.UpdatedAt = now, now
		d.sessions[s.ID] = cloneSession(*s)
		return nil
	})
}

func (r sessions) Get(ctx context.Context, id string) (out models.DefenseSession, err error) {
	err = r.a.read(ctx, func(d *data) error {
		s, ok := d.sessions[id]
		if !ok {
			return store.ErrNotFound
		}
		out = cloneSession(s)
		return nil
	})
	return out, err
}

func (r sessions) List(ctx context.Context) (out []models.DefenseSession, err error) {
	err = r.a.read(ctx, func(d *data) error {
		out = make([]models.DefenseSession, 0, len(d.sessions))
		for _, s := range d.sessions {
			out = append(out, cloneSession(s))
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].ID < out[j].ID
		})
		return nil
	})
	return out, err
}

func (r sessions) Update(ctx context.Context, s *models.DefenseSession) error {
	return r.a.write(ctx, func(d *data) error {
		cur, ok := d.sessions[s.ID]
		if !ok {
			return store.ErrNotFound
		}
		s.CreatedAt = cur.CreatedAt
		s.UpdatedAt = r.a.now()
		d.sessions[s.ID] = cloneSession(*s)
		return nil
	})
}

// topics

type topics struct{ a access }

func (r topics) Create(ctx context.Context, t *models.Topic) error {
	return r.a.write(ctx, func(d *data) error {
		_ = t.BeforeCreate(nil)
		if _, ok := d.topics[t.ID]; ok {
			return store.ErrConflict
		}
		now := r.a.now()
		t.CreatedAt, t.UpdatedAt = now, now
		d.topics[t.ID] = *t
		return nil
	})
}

func (r topics) Get(ctx context.Context, id string) (out models.Topic, err error) {
	err = r.a.read(ctx, func(d *data) error {
		t, ok := d.topics[id]
		if !ok {
			return store.ErrNotFound
		}
		out = t
		return nil
	})
	return out, err
}

func (r topics) List(ctx context.Context, sessionID string) (out []models.Topic, err error) {
	err = r.a.read(ctx, func(d *data) error {
		out = make([]models.Topic, 0)
		for _, t := range d.topics {
			if sessionID == "" || t.SessionID == sessionID {
				out = append(out, t)
			}
		}
		sortTopics(out)
		return nil
	})
	return out, err
}

func (r topics) LockByKey(ctx context.Context, key models.TopicKey) (out []models.Topic, err error) {
	err = r.a.read(ctx, func(d *data) error {
		out = make([]models.Topic, 0, 1)
		for _, t := range d.topics {
			if t.Key() == key {
				out = append(out, t)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r topics) Update(ctx context.Context, t *models.Topic) error {
	return r.a.write(ctx, func(d *data) error {
		cur, ok := d.topics[t.ID]
		if !ok {
			return store.ErrNotFound
		}
		if cur.Version != t.Version {
			return store.ErrStaleWrite
		}
		t.Version++
		t.CreatedAt = cur.CreatedAt
		t.UpdatedAt = r.a.now()
		d.topics[t.ID] = *t
		return nil
	})
}

func (r topics) Delete(ctx context.Context, id string) error {
	return r.a.write(ctx, func(d *data) error {
		if _, ok := d.topics[id]; !ok {
			return store.ErrNotFound
		}
		delete(d.topics, id)
		return nil
	})
}

func sortTopics(ts []models.Topic) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.Before(ts[j].CreatedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}

// registrations

type registrations struct{ a access }

func (r registrations) Create(ctx context.Context, reg *models.Registration) error {
	return r.a.write(ctx, func(d *data) error {
		_ = reg.BeforeCreate(nil)
		for _, other := range d.registrations {
			if other.ID == reg.ID || (other.SessionID == reg.SessionID && other.StudentID == reg.StudentID) {
				return store.ErrConflict
			}
		}
		now := r.a.now()
		reg.CreatedAt, reg.UpdatedAt = now, now
		d.registrations[reg.ID] = cloneRegistration(*reg)
		return nil
	})
}

func (r registrations) Get(ctx context.Context, id string) (out models.Registration, err error) {
	err = r.a.read(ctx, func(d *data) error {
		reg, ok := d.registrations[id]
		if !ok {
			return store.ErrNotFound
		}
		out = cloneRegistration(reg)
		return nil
	})
	return out, err
}

func (r registrations) GetForUpdate(ctx context.Context, id string) (models.Registration, error) {
	return r.Get(ctx, id)
}

func (r registrations) List(ctx context.Context, f store.RegistrationFilter) (out []models.Registration, err error) {
	var ids map[string]bool
	if f.IDs != nil {
		ids = make(map[string]bool, len(f.IDs))
		for _, id := range f.IDs {
			ids[id] = true
		}
	}
	err = r.a.read(ctx, func(d *data) error {
		out = make([]models.Registration, 0)
		for _, reg := range d.registrations {
			if f.SessionID != "" && reg.SessionID != f.SessionID {
				continue
			}
			if f.SupervisorID != "" && reg.SupervisorID != f.SupervisorID {
				continue
			}
			if f.StudentID != "" && reg.StudentID != f.StudentID {
				continue
			}
			if ids != nil && !ids[reg.ID] {
				continue
			}
			out = append(out, cloneRegistration(reg))
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].StudentID != out[j].StudentID {
				return out[i].StudentID < out[j].StudentID
			}
			return out[i].ID < out[j].ID
		})
		return nil
	})
	return out, err
}

func (r registrations) CountBound(ctx context.Context, key models.TopicKey) (n int, err error) {
	err = r.a.read(ctx, func(d *data) error {
		for _, reg := range d.registrations {
			if reg.ProjectRegistrationStatus != models.ProjectStatusNone && reg.TopicKey() == key {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r registrations) Update(ctx context.Context, reg *models.Registration) error {
	return r.a.write(ctx, func(d *data) error {
		cur, ok := d.registrations[reg.ID]
		if !ok {
			return store.ErrNotFound
		}
		if cur.Version != reg.Version {
			return store.ErrStaleWrite
		}
		reg.Version++
		reg.CreatedAt = cur.CreatedAt
		reg.UpdatedAt = r.a.now()
		d.registrations[reg.ID] = cloneRegistration(*reg)
		return nil
	})
}

// evaluations

type evaluations struct{ a access }

func (r evaluations) Create(ctx context.Context, e *models.Evaluation) error {
	return r.a.write(ctx, func(d *data) error {
		_ = e.BeforeCreate(nil)
		for _, other := range d.evaluations {
			if other.ID == e.ID || keyOf(other) == keyOf(*e) {
				return store.ErrConflict
			}
		}
		now := r.a.now()
		e.CreatedAt, e.UpdatedAt = now, now
		d.evaluations[e.ID] = cloneEvaluation(*e)
		return nil
	})
}

func (r evaluations) Get(ctx context.Context, id string) (out models.Evaluation, err error) {
	err = r.a.read(ctx, func(d *data) error {
		e, ok := d.evaluations[id]
		if !ok {
			return store.ErrNotFound
		}
		out = cloneEvaluation(e)
		return nil
	})
	return out, err
}

func (r evaluations) Find(ctx context.Context, key store.EvaluationKey) (out models.Evaluation, err error) {
	err = r.a.read(ctx, func(d *data) error {
		for _, e := range d.evaluations {
			if keyOf(e) == key {
				out = cloneEvaluation(e)
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r evaluations) List(ctx context.Context, f store.EvaluationFilter) (out []models.Evaluation, err error) {
	var regs map[string]bool
	if f.RegistrationIDs != nil {
		regs = make(map[string]bool, len(f.RegistrationIDs))
		for _, id := range f.RegistrationIDs {
			regs[id] = true
		}
	}
	err = r.a.read(ctx, func(d *data) error {
		out = make([]models.Evaluation, 0)
		for _, e := range d.evaluations {
			if regs != nil && !regs[e.RegistrationID] {
				continue
			}
			if f.EvaluationType != "" && e.EvaluationType != f.EvaluationType {
				continue
			}
			if f.RubricID != "" && e.RubricID != f.RubricID {
				continue
			}
			if f.EvaluatorID != "" && e.EvaluatorID != f.EvaluatorID {
				continue
			}
			out = append(out, cloneEvaluation(e))
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return out[i].ID < out[j].ID
		})
		return nil
	})
	return out, err
}

func (r evaluations) UpdateScores(ctx context.Context, e *models.Evaluation) error {
	return r.a.write(ctx, func(d *data) error {
		cur, ok := d.evaluations[e.ID]
		if !ok {
			return store.ErrNotFound
		}
		cur.Scores = e.Scores
		cur.UpdatedAt = r.a.now()
		d.evaluations[e.ID] = cloneEvaluation(cur)
		*e = cloneEvaluation(cur)
		return nil
	})
}

func keyOf(e models.Evaluation) store.EvaluationKey {
	return store.EvaluationKey{
		EvaluatorID:    e.EvaluatorID,
		RegistrationID: e.RegistrationID,
		RubricID:       e.RubricID,
		EvaluationType: e.EvaluationType,
	}
}

// rubrics

type rubrics struct{ a access }

func (r rubrics) Create(ctx context.Context, rb *models.Rubric) error {
	return r.a.write(ctx, func(d *data) error {
		_ = rb.BeforeCreate(nil)
		if _, ok := d.rubrics[rb.ID]; ok {
			return store.ErrConflict
		}
		for _, other := range d.rubrics {
			if other.LineageID == rb.LineageID && other.Version == rb.Version {
				return store.ErrConflict
			}
		}
		rb.CreatedAt = r.a.now()
		d.rubrics[rb.ID] = cloneRubric(*rb)
		return nil
	})
}

func (r rubrics) Get(ctx context.Context, id string) (out models.Rubric, err error) {
	err = r.a.read(ctx, func(d *data) error {
		rb, ok := d.rubrics[id]
		if !ok {
			return store.ErrNotFound
		}
		out = cloneRubric(rb)
		return nil
	})
	return out, err
}

func (r rubrics) List(ctx context.Context, evaluationType models.EvaluationType) (out []models.Rubric, err error) {
	err = r.a.read(ctx, func(d *data) error {
		out = make([]models.Rubric, 0)
		for _, rb := range d.rubrics {
			if evaluationType == "" || rb.EvaluationType == evaluationType {
				out = append(out, cloneRubric(rb))
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Name != out[j].Name {
				return out[i].Name < out[j].Name
			}
			return out[i].Version < out[j].Version
		})
		return nil
	})
	return out, err
}

func (r rubrics) LatestVersion(ctx context.Context, lineageID string) (v int, err error) {
	err = r.a.read(ctx, func(d *data) error {
		for _, rb := range d.rubrics {
			if rb.LineageID == lineageID && rb.Version > v {
				v = rb.Version
			}
		}
		return nil
	})
	return v, err
}

// settings

type settings struct{ a access }

func (r settings) Get(ctx context.Context, key string) (out models.AppSetting, err error) {
	err = r.a.read(ctx, func(d *data) error {
		s, ok := d.settings[key]
		if !ok {
			return store.ErrNotFound
		}
		out = s
		return nil
	})
	return out, err
}

func (r settings) Put(ctx context.Context, s *models.AppSetting) error {
	return r.a.write(ctx, func(d *data) error {
		now := r.a.now()
		if cur, ok := d.settings[s.Key]; ok {
			s.CreatedAt = cur.CreatedAt
		} else {
			s.CreatedAt = now
		}
		s.UpdatedAt = now
		d.settings[s.Key] = *s
		return nil
	})
}

func (r settings) List(ctx context.Context) (out []models.AppSetting, err error) {
	err = r.a.read(ctx, func(d *data) error {
		out = make([]models.AppSetting, 0, len(d.settings))
		for _, s := range d.settings {
			out = append(out, s)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
		return nil
	})
	return out, err
}

// copies

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneSession(s models.DefenseSession) models.DefenseSession {
	s.StartDate = cloneTime(s.StartDate)
	s.EndDate = cloneTime(s.EndDate)
	s.ExpectedReportDate = cloneTime(s.ExpectedReportDate)
	return s
}

func cloneRegistration(r models.Registration) models.Registration {
	r.TopicID = cloneString(r.TopicID)
	r.SubCommitteeID = cloneString(r.SubCommitteeID)
	r.InternshipStartDate = cloneTime(r.InternshipStartDate)
	r.InternshipEndDate = cloneTime(r.InternshipEndDate)
	return r
}

func cloneRubric(r models.Rubric) models.Rubric {
	r.Criteria = datatypes.NewJSONType(append([]models.Criterion(nil), r.Criteria.Data()...))
	return r
}

func cloneEvaluation(e models.Evaluation) models.Evaluation {
	e.Scores = datatypes.NewJSONType(append([]models.Score(nil), e.Scores.Data()...))
	return e
}
