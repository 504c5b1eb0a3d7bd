package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TopicStatus string

const (
	TopicStatusDraft    TopicStatus = "draft"
	TopicStatusApproved TopicStatus = "approved"
	TopicStatusTaken    TopicStatus = "taken"
)

// Topic is a supervisor-proposed project offering. Several records may describe
// the same offering after repeated imports; see Topic.Key.
type Topic struct {
	ID              string      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID       string      `gorm:"type:uuid;index:idx_topic_key,priority:1" json:"session_id"`
	SupervisorID    string      `gorm:"size:64;index:idx_topic_key,priority:3" json:"supervisor_id"`
	SupervisorName  string      `gorm:"size:255" json:"supervisor_name"`
	Title           string      `gorm:"size:512;index:idx_topic_key,priority:2" json:"title"`
	Summary         string      `gorm:"type:text" json:"summary"`
	Objectives      string      `gorm:"type:text" json:"objectives"`
	ExpectedResults string      `gorm:"type:text" json:"expected_results"`
	Field           string      `gorm:"size:255" json:"field"`
	MaxStudents     int         `json:"max_students"`
	Status          TopicStatus `gorm:"size:32;index" json:"status"`
	Version         int         `gorm:"not null;default:1" json:"-"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (t *Topic) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Version == 0 {
		t.Version = 1
	}
	return nil
}

// TopicKey identifies "the same offering" across duplicate topic records.
type TopicKey struct {
	SessionID    string
	Title        string
	SupervisorID string
}

func (t Topic) Key() TopicKey {
	return TopicKey{SessionID: t.SessionID, Title: t.Title, SupervisorID: t.SupervisorID}
}
