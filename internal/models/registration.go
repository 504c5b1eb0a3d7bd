package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectStatus is the topic-allocation track. The zero value is persisted as NULL
// and means no topic has been requested.
type ProjectStatus string

const (
	ProjectStatusNone     ProjectStatus = ""
	ProjectStatusPending  ProjectStatus = "pending"
	ProjectStatusApproved ProjectStatus = "approved"
	ProjectStatusRejected ProjectStatus = "rejected"
)

func (s ProjectStatus) Value() (driver.Value, error) {
	if s == ProjectStatusNone {
		return nil, nil
	}
	return string(s), nil
}

func (s *ProjectStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = ProjectStatusNone
	case string:
		*s = ProjectStatus(v)
	case []byte:
		*s = ProjectStatus(string(v))
	default:
		return fmt.Errorf("ProjectStatus: unsupported scan type %T", src)
	}
	return nil
}

func (s ProjectStatus) MarshalJSON() ([]byte, error) {
	if s == ProjectStatusNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

func (s *ProjectStatus) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ProjectStatusNone
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = ProjectStatus(v)
	return nil
}

// TrackStatus is shared by the proposal, report, internship and post-defense tracks.
type TrackStatus string

const (
	TrackStatusNotSubmitted    TrackStatus = "not_submitted"
	TrackStatusPendingApproval TrackStatus = "pending_approval"
	TrackStatusApproved        TrackStatus = "approved"
	TrackStatusRejected        TrackStatus = "rejected"
)

// ReportingStatus flags a registration as ready to appear in outcome reports.
type ReportingStatus string

const (
	ReportingStatusNone      ReportingStatus = ""
	ReportingStatusReporting ReportingStatus = "reporting"
	ReportingStatusCompleted ReportingStatus = "completed"
)

// Registration is the one-per-(student, session) ledger record.
type Registration struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    string `gorm:"type:uuid;uniqueIndex:uniq_session_student,priority:1;index:idx_registration_topic,priority:1" json:"session_id"`
	StudentDocID string `gorm:"size:64" json:"student_doc_id"`
	StudentID    string `gorm:"size:64;uniqueIndex:uniq_session_student,priority:2" json:"student_id"`
	StudentName  string `gorm:"size:255" json:"student_name"`

	// Allocation fields, written only by the allocation engine.
	TopicID                   *string       `gorm:"type:uuid" json:"topic_id"`
	SupervisorID              string        `gorm:"size:64;index:idx_registration_topic,priority:3" json:"supervisor_id"`
	SupervisorName            string        `gorm:"size:255" json:"supervisor_name"`
	ProjectTitle              string        `gorm:"size:512;index:idx_registration_topic,priority:2" json:"project_title"`
	Summary                   string        `gorm:"type:text" json:"summary"`
	Objectives                string        `gorm:"type:text" json:"objectives"`
	ExpectedResults           string        `gorm:"type:text" json:"expected_results"`
	ProjectRegistrationStatus ProjectStatus `gorm:"size:32;index" json:"project_registration_status"`

	ProposalStatus TrackStatus `gorm:"size:32;default:'not_submitted'" json:"proposal_status"`
	ProposalURL    string      `gorm:"type:text" json:"proposal_url"`

	ReportStatus TrackStatus `gorm:"size:32;default:'not_submitted'" json:"report_status"`
	ReportURL    string      `gorm:"type:text" json:"report_url"`

	InternshipRegistrationStatus TrackStatus `gorm:"size:32;default:'not_submitted'" json:"internship_registration_status"`
	InternshipCompany            string      `gorm:"size:255" json:"internship_company"`
	InternshipPosition           string      `gorm:"size:255" json:"internship_position"`
	InternshipAddress            string      `gorm:"type:text" json:"internship_address"`
	InternshipSupervisorID       string      `gorm:"size:64;index" json:"internship_supervisor_id"`
	InternshipSupervisorName     string      `gorm:"size:255" json:"internship_supervisor_name"`
	InternshipStartDate          *time.Time  `json:"internship_start_date,omitempty"`
	InternshipEndDate            *time.Time  `json:"internship_end_date,omitempty"`

	PostDefenseStatus TrackStatus `gorm:"size:32;default:'not_submitted'" json:"post_defense_status"`
	PostDefenseURL    string      `gorm:"type:text" json:"post_defense_url"`

	SubCommitteeID   *string         `gorm:"type:uuid" json:"sub_committee_id,omitempty"`
	GraduationStatus ReportingStatus `gorm:"size:32;index" json:"graduation_status"`
	InternshipStatus ReportingStatus `gorm:"size:32;index" json:"internship_status"`

	Version   int       `gorm:"not null;default:1" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Registration) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Version == 0 {
		r.Version = 1
	}
	r.Normalize()
	return nil
}

// Normalize fills empty track statuses with not_submitted.
func (r *Registration) Normalize() {
	for _, st := range []*TrackStatus{&r.ProposalStatus, &r.ReportStatus, &r.InternshipRegistrationStatus, &r.PostDefenseStatus} {
		if *st == "" {
			*st = TrackStatusNotSubmitted
		}
	}
}

// TopicBound reports whether a topic is currently bound to the registration.
func (r Registration) TopicBound() bool {
	return r.ProjectTitle != "" || r.TopicID != nil
}

// TopicKey returns the identity key of the topic the registration is bound to.
func (r Registration) TopicKey() TopicKey {
	return TopicKey{SessionID: r.SessionID, Title: r.ProjectTitle, SupervisorID: r.SupervisorID}
}

// ReportingStatusFor returns the reporting flag for the given evaluation type.
func (r Registration) ReportingStatusFor(t EvaluationType) ReportingStatus {
	if t == EvaluationTypeInternship {
		return r.InternshipStatus
	}
	return r.GraduationStatus
}
