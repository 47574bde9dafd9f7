package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	errs "github.com/R-Akshay-Kumar/coding-tracker/internal/errors"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/report"
)

const insertReport = `
INSERT INTO reports (id, input_columns, records, created_at)
VALUES ($1, $2, $3, $4)
`

const getReport = `
SELECT id, input_columns, records, created_at, updated_at
FROM reports
WHERE id = $1
`

const updateReportRecords = `
UPDATE reports
SET records = $2, updated_at = $3
WHERE id = $1
`

// Queries stores reports in Postgres, one row per report with JSONB records.
type Queries struct {
	db  DBTX
	now func() time.Time
}

func New(db DBTX) *Queries {
	return &Queries{db: db, now: time.Now}
}

func (q *Queries) Save(ctx context.Context, r *report.Report) (string, error) {
	stored := report.Prepare(r, q.now())
	columns, err := json.Marshal(nonNil(stored.InputColumns))
	if err != nil {
		return "", fmt.Errorf("failed to encode columns: %w", err)
	}
	records, err := json.Marshal(nonNilRecords(stored.Records))
	if err != nil {
		return "", fmt.Errorf("failed to encode records: %w", err)
	}
	if _, err := q.db.Exec(ctx, insertReport, stored.ID, columns, records, stored.CreatedAt); err != nil {
		return "", fmt.Errorf("failed to insert report: %w", err)
	}
	return stored.ID, nil
}

func (q *Queries) Load(ctx context.Context, id string) (*report.Report, error) {
	var (
		r       report.Report
		columns []byte
		records []byte
	)
	err := q.db.QueryRow(ctx, getReport, id).Scan(&r.ID, &columns, &records, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if err := json.Unmarshal(columns, &r.InputColumns); err != nil {
		return nil, fmt.Errorf("failed to decode columns: %w", err)
	}
	if err := json.Unmarshal(records, &r.Records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return &r, nil
}

func (q *Queries) Update(ctx context.Context, id string, records []report.Record) error {
	data, err := json.Marshal(nonNilRecords(records))
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	tag, err := q.db.Exec(ctx, updateReportRecords, id, data, q.now())
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrReportNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilRecords(r []report.Record) []report.Record {
	if r == nil {
		return []report.Record{}
	}
	return r
}
