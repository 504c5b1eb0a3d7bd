// Package outcomes turns rubric evaluations into per-student CLO reports.
package outcomes

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/zaqqye/defense_backend_v1/internal/models"
)

// Source selects whose evaluations feed a report.
type Source = models.EvaluatorRole

// Header is one PI column group.
type Header struct {
	PI   string   `json:"pi"`
	CLOs []string `json:"clos"`
}

// Row is one student of a report. Scores holds every CLO column of the
// report; a nil cell means no score mapped to that CLO.
type Row struct {
	RegistrationID string
	StudentID      string
	StudentName    string
	Scores         map[string]*float64
}

// Fixed keys of a serialized Row. CLO cells share the object with them, so a
// rubric may not name a CLO after any of these.
const (
	ColumnRegistrationID = "registration_id"
	ColumnStudentID      = "student_id"
	ColumnStudentName    = "student_name"
)

// ReservedColumn reports whether name collides with a fixed Row key.
func ReservedColumn(name string) bool {
	switch name {
	case ColumnRegistrationID, ColumnStudentID, ColumnStudentName:
		return true
	}
	return false
}

// MarshalJSON flattens the CLO cells next to the student fields.
func (r Row) MarshalJSON() ([]byte, error) {
	clos := make([]string, 0, len(r.Scores))
	for clo := range r.Scores {
		clos = append(clos, clo)
	}
	sort.Strings(clos)

	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, v interface{}) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}
	if err := write(ColumnRegistrationID, r.RegistrationID); err != nil {
		return nil, err
	}
	if err := write(ColumnStudentID, r.StudentID); err != nil {
		return nil, err
	}
	if err := write(ColumnStudentName, r.StudentName); err != nil {
		return nil, err
	}
	for _, clo := range clos {
		if err := write(clo, r.Scores[clo]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type Report struct {
	Headers []Header `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// HasOutcomeData is false when the rubric maps no criterion to a CLO. Callers
// render that as "no outcome data" instead of an empty table.
func (r Report) HasOutcomeData() bool {
	for _, h := range r.Headers {
		if len(h.CLOs) > 0 {
			return true
		}
	}
	return false
}

// CLOs returns the column order of the report.
func (r Report) CLOs() []string {
	var out []string
	for _, h := range r.Headers {
		out = append(out, h.CLOs...)
	}
	return out
}

func emptyReport() Report {
	return Report{Headers: []Header{}, Rows: []Row{}}
}

type accumulator struct {
	sum   float64
	count int
}

// Aggregate computes the CLO report of reportType for the registrations
// flagged as reporting. Every score that maps to a CLO counts once, pooled
// across all selected evaluations of the student.
func Aggregate(reportType models.EvaluationType, source Source, regs []models.Registration, evals []models.Evaluation, rubric models.Rubric) Report {
	cloOf := make(map[string]string)
	piOf := make(map[string]string)
	for _, c := range rubric.CriteriaList() {
		if !c.Mapped() || c.CLO == "" {
			continue
		}
		cloOf[c.ID] = c.CLO
		if _, seen := piOf[c.CLO]; !seen {
			piOf[c.CLO] = c.PI
		}
	}

	report := emptyReport()
	report.Headers = headers(piOf)

	byReg := make(map[string][]models.Evaluation)
	for _, e := range evals {
		if e.EvaluationType != reportType || e.RubricID != rubric.ID {
			continue
		}
		byReg[e.RegistrationID] = append(byReg[e.RegistrationID], e)
	}

	eligible := make([]models.Registration, 0, len(regs))
	for _, reg := range regs {
		if reg.ReportingStatusFor(reportType) == models.ReportingStatusReporting {
			eligible = append(eligible, reg)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].StudentID != eligible[j].StudentID {
			return eligible[i].StudentID < eligible[j].StudentID
		}
		return eligible[i].ID < eligible[j].ID
	})

	for _, reg := range eligible {
		acc := make(map[string]*accumulator, len(piOf))
		for _, e := range byReg[reg.ID] {
			if !fromSource(e, reg, source) {
				continue
			}
			for _, s := range e.ScoreList() {
				clo, ok := cloOf[s.CriterionID]
				if !ok {
					continue
				}
				a := acc[clo]
				if a == nil {
					a = &accumulator{}
					acc[clo] = a
				}
				a.sum += s.Score
				a.count++
			}
		}

		cells := make(map[string]*float64, len(piOf))
		for clo := range piOf {
			if a := acc[clo]; a != nil && a.count > 0 {
				mean := a.sum / float64(a.count)
				cells[clo] = &mean
			} else {
				cells[clo] = nil
			}
		}
		report.Rows = append(report.Rows, Row{
			RegistrationID: reg.ID,
			StudentID:      reg.StudentID,
			StudentName:    reg.StudentName,
			Scores:         cells,
		})
	}
	return report
}

func fromSource(e models.Evaluation, reg models.Registration, source Source) bool {
	switch source {
	case models.EvaluatorSupervisor:
		return e.EvaluatorID == reg.SupervisorID
	case models.EvaluatorCompany:
		return e.EvaluatorID == reg.InternshipSupervisorID
	case models.EvaluatorCouncil:
		return true
	}
	return false
}

func headers(piOf map[string]string) []Header {
	group := make(map[string][]string)
	for clo, pi := range piOf {
		group[pi] = append(group[pi], clo)
	}
	pis := make([]string, 0, len(group))
	for pi := range group {
		pis = append(pis, pi)
	}
	sort.Strings(pis)

	out := make([]Header, 0, len(pis))
	for _, pi := range pis {
		clos := group[pi]
		sort.Strings(clos)
		out = append(out, Header{PI: pi, CLOs: clos})
	}
	return out
}
