// Package registration is the per-student ledger of a defense session and the
// owner of every status-track write outside topic allocation.
package registration

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
	"github.com/zaqqye/defense_backend_v1/internal/validation"
	"github.com/zaqqye/defense_backend_v1/internal/workflow"
)

var (
	ErrDuplicateRegistration = errors.New("student is already registered in this session")
	ErrProjectViaAllocation  = errors.New("topic requests go through topic registration")
)

// PolicySource supplies the admin-controlled workflow overrides.
type PolicySource interface {
	Policy(ctx context.Context) (workflow.Policy, error)
}

type NewRegistration struct {
	SessionID      string  `json:"session_id" validate:"required"`
	StudentID      string  `json:"student_id" validate:"notblank,max=64"`
	StudentDocID   string  `json:"student_doc_id" validate:"max=64"`
	StudentName    string  `json:"student_name" validate:"notblank,max=255"`
	SubCommitteeID *string `json:"sub_committee_id"`
}

// Submission is the payload of a track submission. Document tracks read URL;
// the internship track reads the internship fields.
type Submission struct {
	URL string `json:"url" validate:"omitempty,url"`

	InternshipCompany        string     `json:"internship_company" validate:"max=255"`
	InternshipPosition       string     `json:"internship_position" validate:"max=255"`
	InternshipAddress        string     `json:"internship_address"`
	InternshipSupervisorID   string     `json:"internship_supervisor_id" validate:"max=64"`
	InternshipSupervisorName string     `json:"internship_supervisor_name" validate:"max=255"`
	InternshipStartDate      *time.Time `json:"internship_start_date"`
	InternshipEndDate        *time.Time `json:"internship_end_date"`
}

type Option func(*Service)

// WithClock replaces time.Now for gate checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	store  store.Store
	policy PolicySource
	log    *zap.Logger
	now    func() time.Time
}

func NewService(st store.Store, policy PolicySource, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{store: st, policy: policy, log: log.Named("registration"), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, in NewRegistration) (models.Registration, error) {
	if err := validation.Struct(in); err != nil {
		return models.Registration{}, err
	}
	reg := models.Registration{
		SessionID:      in.SessionID,
		StudentID:      in.StudentID,
		StudentDocID:   in.StudentDocID,
		StudentName:    in.StudentName,
		SubCommitteeID: in.SubCommitteeID,
	}
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Sessions().Get(ctx, in.SessionID); err != nil {
			return err
		}
		return tx.Registrations().Create(ctx, &reg)
	})
	if errors.Is(err, store.ErrConflict) {
		return models.Registration{}, ErrDuplicateRegistration
	}
	if err != nil {
		return models.Registration{}, err
	}
	return reg, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Registration, error) {
	return s.store.Registrations().Get(ctx, id)
}

func (s *Service) List(ctx context.Context, sessionID string) ([]models.Registration, error) {
	return s.store.Registrations().List(ctx, store.RegistrationFilter{SessionID: sessionID})
}

// ListBySupervisor returns the registrations bound to topics of the supervisor.
func (s *Service) ListBySupervisor(ctx context.Context, sessionID, supervisorID string) ([]models.Registration, error) {
	return s.store.Registrations().List(ctx, store.RegistrationFilter{SessionID: sessionID, SupervisorID: supervisorID})
}

// FindByStudent returns the student's registration in the session.
func (s *Service) FindByStudent(ctx context.Context, sessionID, studentID string) (models.Registration, error) {
	regs, err := s.store.Registrations().List(ctx, store.RegistrationFilter{SessionID: sessionID, StudentID: studentID})
	if err != nil {
		return models.Registration{}, err
	}
	if len(regs) == 0 {
		return models.Registration{}, store.ErrNotFound
	}
	return regs[0], nil
}

// TrackView is what a submission form needs to decide what to render.
type TrackView struct {
	Track    workflow.Track `json:"track"`
	Status   string         `json:"status"`
	Writable bool           `json:"writable"`
}

// Track evaluates the gate of one track from persisted state.
func (s *Service) Track(ctx context.Context, id string, track workflow.Track) (TrackView, error) {
	reg, err := s.store.Registrations().Get(ctx, id)
	if err != nil {
		return TrackView{}, err
	}
	g, err := s.gate(ctx, reg.SessionID)
	if err != nil {
		return TrackView{}, err
	}
	return TrackView{
		Track:    track,
		Status:   workflow.StatusOf(reg, track),
		Writable: workflow.CanWriteTrack(reg, track, g),
	}, nil
}

func (s *Service) gate(ctx context.Context, sessionID string) (workflow.GateContext, error) {
	sess, err := s.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		return workflow.GateContext{}, err
	}
	p, err := s.policy.Policy(ctx)
	if err != nil {
		return workflow.GateContext{}, err
	}
	return workflow.GateContext{Session: sess, Now: s.now(), Policy: p}, nil
}

// ProjectGuard returns the check topic registration and cancellation run on
// the locked registration: the project track must be writable, so an approved
// binding only moves while allow_edit_approved is set.
func (s *Service) ProjectGuard(ctx context.Context) (func(models.Registration) error, error) {
	p, err := s.policy.Policy(ctx)
	if err != nil {
		return nil, err
	}
	return func(reg models.Registration) error {
		if !workflow.CanWriteTrack(reg, workflow.TrackProject, workflow.GateContext{Now: s.now(), Policy: p}) {
			return workflow.ErrTrackNotWritable
		}
		return nil
	}, nil
}

// Submit moves a document track to pending approval and stores its payload.
func (s *Service) Submit(ctx context.Context, id string, track workflow.Track, in Submission) (models.Registration, error) {
	if track == workflow.TrackProject {
		return models.Registration{}, ErrProjectViaAllocation
	}
	if err := validateSubmission(track, in); err != nil {
		return models.Registration{}, err
	}
	p, err := s.policy.Policy(ctx)
	if err != nil {
		return models.Registration{}, err
	}

	var out models.Registration
	err = s.store.WithinTx(ctx, func(tx store.Tx) error {
		reg, err := tx.Registrations().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		sess, err := tx.Sessions().Get(ctx, reg.SessionID)
		if err != nil {
			return err
		}
		if !workflow.CanWriteTrack(reg, track, workflow.GateContext{Session: sess, Now: s.now(), Policy: p}) {
			return workflow.ErrTrackNotWritable
		}
		if err := workflow.Apply(&reg, track, workflow.StatePending, p); err != nil {
			return err
		}
		applyPayload(&reg, track, in)
		if err := tx.Registrations().Update(ctx, &reg); err != nil {
			return err
		}
		out = reg
		return nil
	})
	if err != nil {
		return models.Registration{}, err
	}
	s.log.Info("track submitted",
		zap.String("registration_id", id),
		zap.String("track", string(track)))
	return out, nil
}

// Review approves or rejects a pending track.
func (s *Service) Review(ctx context.Context, id string, track workflow.Track, approve bool) (models.Registration, error) {
	to := workflow.StateRejected
	if approve {
		to = workflow.StateApproved
	}
	var out models.Registration
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		reg, err := tx.Registrations().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if workflow.StateOf(reg, track) != workflow.StatePending {
			return workflow.ErrIllegalTransition
		}
		if err := workflow.Apply(&reg, track, to, workflow.Policy{}); err != nil {
			return err
		}
		if err := tx.Registrations().Update(ctx, &reg); err != nil {
			return err
		}
		out = reg
		return nil
	})
	if err != nil {
		return models.Registration{}, err
	}
	s.log.Info("track reviewed",
		zap.String("registration_id", id),
		zap.String("track", string(track)),
		zap.Stringer("status", to))
	return out, nil
}

type reportingInput struct {
	Type   string `json:"type" validate:"required,oneof=graduation internship"`
	Status string `json:"status" validate:"omitempty,oneof=reporting completed"`
}

// SetReportingStatus flags a registration for the outcome reports of one type.
func (s *Service) SetReportingStatus(ctx context.Context, id string, reportType models.EvaluationType, status models.ReportingStatus) (models.Registration, error) {
	if err := validation.Struct(reportingInput{Type: string(reportType), Status: string(status)}); err != nil {
		return models.Registration{}, err
	}
	var out models.Registration
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		reg, err := tx.Registrations().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if reportType == models.EvaluationTypeInternship {
			reg.InternshipStatus = status
		} else {
			reg.GraduationStatus = status
		}
		if err := tx.Registrations().Update(ctx, &reg); err != nil {
			return err
		}
		out = reg
		return nil
	})
	return out, err
}

func validateSubmission(track workflow.Track, in Submission) error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	var fields []validation.FieldError
	switch track {
	case workflow.TrackProposal, workflow.TrackReport, workflow.TrackPostDefense:
		if in.URL == "" {
			fields = append(fields, validation.FieldError{Field: "url", Error: "url is a required field"})
		}
	case workflow.TrackInternship:
		if in.InternshipCompany == "" {
			fields = append(fields, validation.FieldError{Field: "internship_company", Error: "internship_company is a required field"})
		}
		if in.InternshipPosition == "" {
			fields = append(fields, validation.FieldError{Field: "internship_position", Error: "internship_position is a required field"})
		}
		if in.InternshipStartDate != nil && in.InternshipEndDate != nil && in.InternshipEndDate.Before(*in.InternshipStartDate) {
			fields = append(fields, validation.FieldError{Field: "internship_end_date", Error: "internship_end_date must not be before internship_start_date"})
		}
	default:
		return workflow.ErrUnknownTrack
	}
	if len(fields) > 0 {
		return validation.New("invalid submission", fields...)
	}
	return nil
}

func applyPayload(reg *models.Registration, track workflow.Track, in Submission) {
	switch track {
	case workflow.TrackProposal:
		reg.ProposalURL = in.URL
	case workflow.TrackReport:
		reg.ReportURL = in.URL
	case workflow.TrackPostDefense:
		reg.PostDefenseURL = in.URL
	case workflow.TrackInternship:
		reg.InternshipCompany = in.InternshipCompany
		reg.InternshipPosition = in.InternshipPosition
		reg.InternshipAddress = in.InternshipAddress
		reg.InternshipSupervisorID = in.InternshipSupervisorID
		reg.InternshipSupervisorName = in.InternshipSupervisorName
		reg.InternshipStartDate = in.InternshipStartDate
		reg.InternshipEndDate = in.InternshipEndDate
	}
}
