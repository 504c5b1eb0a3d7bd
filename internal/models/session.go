package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionType string

const (
	SessionTypeGraduation SessionType = "graduation"
	SessionTypeInternship SessionType = "internship"
	SessionTypeMixed      SessionType = "mixed"
)

type SessionStatus string

const (
	SessionStatusUpcoming  SessionStatus = "upcoming"
	SessionStatusOngoing   SessionStatus = "ongoing"
	SessionStatusCompleted SessionStatus = "completed"
)

// DefenseSession groups topics, registrations and evaluations of one defense round.
type DefenseSession struct {
	ID                 string        `gorm:"type:uuid;primaryKey" json:"id"`
	Name               string        `gorm:"size:255" json:"name"`
	Type               SessionType   `gorm:"size:32;index" json:"type"`
	Status             SessionStatus `gorm:"size:32;index" json:"status"`
	StartDate          *time.Time    `json:"start_date,omitempty"`
	EndDate            *time.Time    `json:"end_date,omitempty"`
	ExpectedReportDate *time.Time    `json:"expected_report_date,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

func (s *DefenseSession) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IncludesInternship reports whether internship dossiers are collected in this session.
func (s DefenseSession) IncludesInternship() bool {
	return s.Type == SessionTypeInternship || s.Type == SessionTypeMixed
}

func (s DefenseSession) IncludesGraduation() bool {
	return s.Type == SessionTypeGraduation || s.Type == SessionTypeMixed
}
