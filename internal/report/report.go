package report

import (
	"context"
	"time"

	"github.com/R-Akshay-Kumar/coding-tracker/internal/platform"
)

// ScoreColumn holds the count of solved verdict columns.
const ScoreColumn = "Score"

// Field is one named cell of a student record.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is one student's row: the roster fields, then verdict columns.
// Score is written together with the verdicts and is never derived on read.
type Record struct {
	Fields []Field `json:"fields"`
	Score  int     `json:"score"`
}

func (r *Record) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Set replaces the value of an existing field or appends a new one.
func (r *Record) Set(name, value string) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
}

// WithoutVerdicts returns a copy holding only the non-verdict fields.
func (r Record) WithoutVerdicts() Record {
	out := Record{Fields: make([]Field, 0, len(r.Fields))}
	for _, f := range r.Fields {
		if f.Name == ScoreColumn {
			continue
		}
		if _, ok := ParseColumn(f.Name); ok {
			continue
		}
		out.Fields = append(out.Fields, f)
	}
	return out
}

// SolvedCount counts verdict fields labelled solved.
func (r Record) SolvedCount() int {
	n := 0
	for _, f := range r.Fields {
		if _, ok := ParseColumn(f.Name); ok && f.Value == platform.SolvedLabel {
			n++
		}
	}
	return n
}

func (r Record) clone() Record {
	out := Record{Score: r.Score, Fields: make([]Field, len(r.Fields))}
	copy(out.Fields, r.Fields)
	return out
}

func cloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.clone()
	}
	return out
}

// Report is a persisted, scored set of student records.
type Report struct {
	ID           string     `json:"report_id"`
	InputColumns []string   `json:"input_columns"`
	Records      []Record   `json:"records"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"last_updated,omitempty"`
}

func (r *Report) TotalStudents() int {
	return len(r.Records)
}

// SourceColumns returns the roster columns of the report, falling back to the
// non-verdict fields of the first record when none were stored.
func (r *Report) SourceColumns() []string {
	if len(r.InputColumns) > 0 {
		return r.InputColumns
	}
	if len(r.Records) == 0 {
		return nil
	}
	base := r.Records[0].WithoutVerdicts()
	cols := make([]string, 0, len(base.Fields))
	for _, f := range base.Fields {
		cols = append(cols, f.Name)
	}
	return cols
}

// Store persists reports. Load and Update return errors.ErrReportNotFound
// for unknown identifiers.
type Store interface {
	Save(ctx context.Context, r *Report) (string, error)
	Load(ctx context.Context, id string) (*Report, error)
	Update(ctx context.Context, id string, records []Record) error
}
