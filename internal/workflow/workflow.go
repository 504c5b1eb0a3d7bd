// Package workflow holds the per-registration status tracks: the transition
// table every status write is validated against, and the gating predicate that
// decides whether a submission form may write a track.
package workflow

import (
	"errors"
	"fmt"

	"github.com/zaqqye/defense_backend_v1/internal/models"
)

var (
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrTrackNotWritable  = errors.New("track is not writable")
	ErrUnknownTrack      = errors.New("unknown track")
)

type Track string

const (
	TrackProject     Track = "project"
	TrackProposal    Track = "proposal"
	TrackReport      Track = "report"
	TrackInternship  Track = "internship"
	TrackPostDefense Track = "post_defense"
)

var Tracks = []Track{TrackProject, TrackProposal, TrackReport, TrackInternship, TrackPostDefense}

func ParseTrack(s string) (Track, error) {
	for _, t := range Tracks {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTrack, s)
}

// State is the shape every track shares, whatever its persisted spelling.
type State int

const (
	StateNone State = iota
	StatePending
	StateApproved
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateApproved:
		return "approved"
	case StateRejected:
		return "rejected"
	}
	return "none"
}

// Policy carries the externally owned switches that widen the table.
type Policy struct {
	AllowEditApproved bool
	ForceOpenReport   bool
}

type edge struct{ from, to State }

var transitions = map[edge]bool{
	{StateNone, StatePending}:     true,
	{StatePending, StatePending}:  true,
	{StatePending, StateApproved}: true,
	{StatePending, StateRejected}: true,
	{StateRejected, StatePending}: true,
}

// Transition validates a move on any track.
func Transition(from, to State, p Policy) error {
	if transitions[edge{from, to}] {
		return nil
	}
	if from == StateApproved && to == StatePending && p.AllowEditApproved {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

func projectState(s models.ProjectStatus) State {
	switch s {
	case models.ProjectStatusPending:
		return StatePending
	case models.ProjectStatusApproved:
		return StateApproved
	case models.ProjectStatusRejected:
		return StateRejected
	}
	return StateNone
}

func trackState(s models.TrackStatus) State {
	switch s {
	case models.TrackStatusPendingApproval:
		return StatePending
	case models.TrackStatusApproved:
		return StateApproved
	case models.TrackStatusRejected:
		return StateRejected
	}
	return StateNone
}

func projectStatus(s State) models.ProjectStatus {
	switch s {
	case StatePending:
		return models.ProjectStatusPending
	case StateApproved:
		return models.ProjectStatusApproved
	case StateRejected:
		return models.ProjectStatusRejected
	}
	return models.ProjectStatusNone
}

func trackStatus(s State) models.TrackStatus {
	switch s {
	case StatePending:
		return models.TrackStatusPendingApproval
	case StateApproved:
		return models.TrackStatusApproved
	case StateRejected:
		return models.TrackStatusRejected
	}
	return models.TrackStatusNotSubmitted
}

// StateOf reads the state of one track.
func StateOf(reg models.Registration, t Track) State {
	switch t {
	case TrackProject:
		return projectState(reg.ProjectRegistrationStatus)
	case TrackProposal:
		return trackState(reg.ProposalStatus)
	case TrackReport:
		return trackState(reg.ReportStatus)
	case TrackInternship:
		return trackState(reg.InternshipRegistrationStatus)
	case TrackPostDefense:
		return trackState(reg.PostDefenseStatus)
	}
	return StateNone
}

// StatusOf returns the persisted spelling of one track's status.
func StatusOf(reg models.Registration, t Track) string {
	switch t {
	case TrackProject:
		return string(reg.ProjectRegistrationStatus)
	case TrackProposal:
		return string(reg.ProposalStatus)
	case TrackReport:
		return string(reg.ReportStatus)
	case TrackInternship:
		return string(reg.InternshipRegistrationStatus)
	case TrackPostDefense:
		return string(reg.PostDefenseStatus)
	}
	return ""
}

// Apply validates and performs a move on a single track. No other field of reg
// is touched.
func Apply(reg *models.Registration, t Track, to State, p Policy) error {
	if err := Transition(StateOf(*reg, t), to, p); err != nil {
		return fmt.Errorf("%s track: %w", t, err)
	}
	switch t {
	case TrackProject:
		reg.ProjectRegistrationStatus = projectStatus(to)
	case TrackProposal:
		reg.ProposalStatus = trackStatus(to)
	case TrackReport:
		reg.ReportStatus = trackStatus(to)
	case TrackInternship:
		reg.InternshipRegistrationStatus = trackStatus(to)
	case TrackPostDefense:
		reg.PostDefenseStatus = trackStatus(to)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTrack, t)
	}
	return nil
}
