package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EvaluationType string

const (
	EvaluationTypeGraduation EvaluationType = "graduation"
	EvaluationTypeInternship EvaluationType = "internship"
)

func (t EvaluationType) Valid() bool {
	return t == EvaluationTypeGraduation || t == EvaluationTypeInternship
}

// EvaluatorRole is the evaluation context a score sheet was entered in.
type EvaluatorRole string

const (
	EvaluatorCouncil    EvaluatorRole = "council"
	EvaluatorSupervisor EvaluatorRole = "supervisor"
	EvaluatorCompany    EvaluatorRole = "company"
)

func (r EvaluatorRole) Valid() bool {
	switch r {
	case EvaluatorCouncil, EvaluatorSupervisor, EvaluatorCompany:
		return true
	}
	return false
}

type Score struct {
	CriterionID string  `json:"criterion_id" validate:"required"`
	Score       float64 `json:"score" validate:"gte=0"`
}

// Evaluation is one evaluator's score sheet for one registration against one rubric.
type Evaluation struct {
	ID             string                      `gorm:"type:uuid;primaryKey" json:"id"`
	RegistrationID string                      `gorm:"type:uuid;uniqueIndex:uniq_evaluation,priority:2" json:"registration_id"`
	EvaluatorID    string                      `gorm:"size:64;uniqueIndex:uniq_evaluation,priority:1" json:"evaluator_id"`
	EvaluatorRole  EvaluatorRole               `gorm:"size:32" json:"evaluator_role"`
	EvaluationType EvaluationType              `gorm:"size:32;uniqueIndex:uniq_evaluation,priority:4" json:"evaluation_type"`
	RubricID       string                      `gorm:"type:uuid;uniqueIndex:uniq_evaluation,priority:3" json:"rubric_id"`
	Scores         datatypes.JSONType[[]Score] `json:"scores"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

func (e *Evaluation) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

func (e Evaluation) ScoreList() []Score {
	return e.Scores.Data()
}
