package report

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	errs "github.com/R-Akshay-Kumar/coding-tracker/internal/errors"
)

// MemoryStore keeps reports in process memory. Callers receive copies.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*Report
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*Report), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, r *Report) (string, error) {
	stored := Prepare(r, s.now())
	s.mu.Lock()
	s.reports[stored.ID] = stored
	s.mu.Unlock()
	return stored.ID, nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, errs.ErrReportNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return errs.ErrReportNotFound
	}
	now := s.now()
	r.Records = cloneRecords(records)
	r.UpdatedAt = &now
	return nil
}

// Prepare returns a copy of r ready to persist, assigning an ID and
// creation time when they are missing.
func Prepare(r *Report, now time.Time) *Report {
	out := r.Clone()
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	return out
}

func (r *Report) Clone() *Report {
	out := &Report{
		ID:           r.ID,
		InputColumns: append([]string(nil), r.InputColumns...),
		Records:      cloneRecords(r.Records),
		CreatedAt:    r.CreatedAt,
	}
	if r.UpdatedAt != nil {
		t := *r.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}
