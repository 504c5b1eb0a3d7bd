package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Criterion is one scored line of a rubric. PI and CLO are both empty for
// criteria that do not feed outcome reports.
type Criterion struct {
	ID       string  `json:"id" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	MaxScore float64 `json:"max_score" validate:"gt=0"`
	PI       string  `json:"pi,omitempty"`
	CLO      string  `json:"clo,omitempty"`
}

// Mapped reports whether the criterion carries any outcome tag.
func (c Criterion) Mapped() bool {
	return c.PI != "" || c.CLO != ""
}

// Rubric is an immutable, versioned set of criteria. A revision is a new record
// sharing LineageID with its predecessors.
type Rubric struct {
	ID             string                          `gorm:"type:uuid;primaryKey" json:"id"`
	LineageID      string                          `gorm:"type:uuid;uniqueIndex:uniq_rubric_version,priority:1" json:"lineage_id"`
	Name           string                          `gorm:"size:255" json:"name"`
	EvaluationType EvaluationType                  `gorm:"size:32;index" json:"evaluation_type"`
	Version        int                             `gorm:"uniqueIndex:uniq_rubric_version,priority:2" json:"version"`
	Criteria       datatypes.JSONType[[]Criterion] `json:"criteria"`
	CreatedAt      time.Time                       `json:"created_at"`
}

func (r *Rubric) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.LineageID == "" {
		r.LineageID = r.ID
	}
	return nil
}

func (r Rubric) CriteriaList() []Criterion {
	return r.Criteria.Data()
}

// Criterion looks up a criterion by id.
func (r Rubric) Criterion(id string) (Criterion, bool) {
	for _, c := range r.Criteria.Data() {
		if c.ID == id {
			return c, true
		}
	}
	return Criterion{}, false
}
