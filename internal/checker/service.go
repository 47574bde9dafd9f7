package checker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/R-Akshay-Kumar/coding-tracker/internal/logger"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/report"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/roster"
)

// Archiver receives a copy of every written report export.
type Archiver interface {
	Upload(ctx context.Context, key string, data io.Reader) error
}

// Service runs fresh checks and refreshes of stored reports.
type Service struct {
	store     report.Store
	processor *Processor
	archive   Archiver
	locks     *keyedMutex
	log       *zap.SugaredLogger
}

// NewService wires a store and processor. archive may be nil.
func NewService(store report.Store, processor *Processor, archive Archiver) *Service {
	return &Service{
		store:     store,
		processor: processor,
		archive:   archive,
		locks:     newKeyedMutex(),
		log:       logger.NewNamedLogger("checker"),
	}
}

// Check verifies a freshly uploaded roster and saves the resulting report.
func (s *Service) Check(ctx context.Context, r *roster.Roster, problems report.ProblemSet, progress ProgressFunc) (string, error) {
	students := make([]report.Record, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := report.Record{Fields: make([]report.Field, 0, len(r.Columns))}
		for _, col := range r.Columns {
			rec.Fields = append(rec.Fields, report.Field{Name: col, Value: row[col]})
		}
		students = append(students, rec)
	}

	records, err := s.processor.Run(ctx, students, roster.HandleColumns(r.Columns), problems, progress)
	if err != nil {
		return "", fmt.Errorf("failed to check roster: %w", err)
	}

	rep := &report.Report{InputColumns: r.Columns, Records: records}
	id, err := s.store.Save(ctx, rep)
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	rep.ID = id
	s.log.Infow("report saved", "report_id", id, "students", len(records), "problems", problems.Len())

	s.archiveReport(ctx, rep)
	return id, nil
}

// Refresh re-verifies a stored report against the problems recorded in its
// column names and overwrites its records. Refreshes of one report never overlap.
func (s *Service) Refresh(ctx context.Context, reportID string, progress ProgressFunc) error {
	unlock := s.locks.Lock(reportID)
	defer unlock()

	rep, err := s.store.Load(ctx, reportID)
	if err != nil {
		return fmt.Errorf("failed to load report %s: %w", reportID, err)
	}
	if len(rep.Records) == 0 {
		if progress != nil {
			progress(0, 0)
		}
		s.log.Infow("nothing to refresh", "report_id", reportID)
		return nil
	}

	problems := report.InferProblemSet(rep.Records)
	handles := roster.HandleColumns(rep.SourceColumns())

	records, err := s.processor.Run(ctx, rep.Records, handles, problems, progress)
	if err != nil {
		return fmt.Errorf("failed to refresh report %s: %w", reportID, err)
	}
	if err := s.store.Update(ctx, reportID, records); err != nil {
		return fmt.Errorf("failed to update report %s: %w", reportID, err)
	}
	s.log.Infow("report refreshed", "report_id", reportID, "students", len(records), "problems", problems.Len())

	rep.Records = records
	s.archiveReport(ctx, rep)
	return nil
}

// Load returns a stored report.
func (s *Service) Load(ctx context.Context, reportID string) (*report.Report, error) {
	return s.store.Load(ctx, reportID)
}

// ArchiveKey is the object key an exported report is uploaded under.
func ArchiveKey(reportID string) string {
	return "reports/" + reportID + ".xlsx"
}

// archiveReport uploads the export when an archive is configured. Failures are logged only.
func (s *Service) archiveReport(ctx context.Context, rep *report.Report) {
	if s.archive == nil {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, report.ReportColumns(rep, false), rep.Records); err != nil {
		s.log.Errorw("failed to export report for archive", "report_id", rep.ID, "error", err)
		return
	}
	if err := s.archive.Upload(ctx, ArchiveKey(rep.ID), bytes.NewReader(buf.Bytes())); err != nil {
		s.log.Errorw("failed to archive report", "report_id", rep.ID, "error", err)
	}
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
