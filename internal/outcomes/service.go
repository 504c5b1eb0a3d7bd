package outcomes

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
)

var (
	ErrInvalidReportType = errors.New("report type must be graduation or internship")
	ErrInvalidSource     = errors.New("source must be council, supervisor or company")
)

type Service struct {
	store store.Store
	log   *zap.Logger
}

func NewService(st store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, log: log.Named("outcomes")}
}

// Build loads the inputs of a session report and aggregates them. A missing
// rubric yields an empty report rather than an error.
func (s *Service) Build(ctx context.Context, sessionID string, reportType models.EvaluationType, source Source, rubricID string) (Report, error) {
	if !reportType.Valid() {
		return Report{}, ErrInvalidReportType
	}
	if !source.Valid() {
		return Report{}, ErrInvalidSource
	}

	var (
		rubric      models.Rubric
		rubricFound = true
		regs        []models.Registration
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.store.Rubrics().Get(gctx, rubricID)
		if errors.Is(err, store.ErrNotFound) {
			rubricFound = false
			return nil
		}
		rubric = r
		return err
	})
	g.Go(func() error {
		var err error
		regs, err = s.store.Registrations().List(gctx, store.RegistrationFilter{SessionID: sessionID})
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if !rubricFound {
		s.log.Warn("outcome report requested for unknown rubric",
			zap.String("session_id", sessionID),
			zap.String("rubric_id", rubricID))
		return emptyReport(), nil
	}

	ids := make([]string, 0, len(regs))
	for _, reg := range regs {
		if reg.ReportingStatusFor(reportType) == models.ReportingStatusReporting {
			ids = append(ids, reg.ID)
		}
	}
	evals, err := s.store.Evaluations().List(ctx, store.EvaluationFilter{
		RegistrationIDs: ids,
		EvaluationType:  reportType,
		RubricID:        rubric.ID,
	})
	if err != nil {
		return Report{}, err
	}

	report := Aggregate(reportType, source, regs, evals, rubric)
	s.log.Debug("outcome report built",
		zap.String("session_id", sessionID),
		zap.String("type", string(reportType)),
		zap.String("source", string(source)),
		zap.Int("rows", len(report.Rows)),
		zap.Int("evaluations", len(evals)))
	return report, nil
}
