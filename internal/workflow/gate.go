package workflow

import (
	"time"

	"github.com/zaqqye/defense_backend_v1/internal/models"
)

const (
	ReportWindowOpensBefore  = 14 * 24 * time.Hour
	ReportWindowClosesBefore = 7 * 24 * time.Hour
)

// GateContext is the persisted state, beyond the registration itself, that the
// gating rules read.
type GateContext struct {
	Session models.DefenseSession
	Now     time.Time
	Policy  Policy
}

// ReportWindow returns the submission window derived from the session's
// expected report date. ok is false when no date is set.
func ReportWindow(s models.DefenseSession) (opens, closes time.Time, ok bool) {
	if s.ExpectedReportDate == nil {
		return time.Time{}, time.Time{}, false
	}
	d := *s.ExpectedReportDate
	return d.Add(-ReportWindowOpensBefore), d.Add(-ReportWindowClosesBefore), true
}

func inReportWindow(g GateContext) bool {
	if g.Policy.ForceOpenReport {
		return true
	}
	opens, closes, ok := ReportWindow(g.Session)
	if !ok {
		return false
	}
	return !g.Now.Before(opens) && !g.Now.After(closes)
}

// Precondition reports whether the gate in front of a track holds, ignoring
// the track's own status.
func Precondition(reg models.Registration, t Track, g GateContext) bool {
	switch t {
	case TrackProject:
		return true
	case TrackProposal:
		return reg.ProjectRegistrationStatus == models.ProjectStatusApproved
	case TrackReport:
		return reg.ProposalStatus == models.TrackStatusApproved && inReportWindow(g)
	case TrackInternship:
		return g.Session.ID == reg.SessionID &&
			g.Session.IncludesInternship() &&
			g.Session.Status == models.SessionStatusOngoing
	case TrackPostDefense:
		return reg.ReportStatus == models.TrackStatusApproved
	}
	return false
}

// CanWriteTrack is true when a submission form may write the track now: its gate
// holds and submitting is a legal move from the track's current status. The
// project track is written by topic registration and cancellation, so it is
// writable while nothing is bound or the binding is still pending.
func CanWriteTrack(reg models.Registration, t Track, g GateContext) bool {
	if !Precondition(reg, t, g) {
		return false
	}
	cur := StateOf(reg, t)
	if t == TrackProject {
		switch cur {
		case StateNone, StatePending:
			return true
		case StateApproved:
			return g.Policy.AllowEditApproved
		}
		return false
	}
	return Transition(cur, StatePending, g.Policy) == nil
}
