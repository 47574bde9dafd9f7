package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	errs "github.com/R-Akshay-Kumar/coding-tracker/internal/errors"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/logger"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Kind string

const (
	KindCheck   Kind = "check"
	KindRefresh Kind = "refresh"
)

// Job is a snapshot of one orchestrated run.
type Job struct {
	ID          uuid.UUID  `json:"job_id"`
	Kind        Kind       `json:"kind"`
	Status      Status     `json:"status"`
	Current     int        `json:"current"`
	Total       int        `json:"total"`
	Error       string     `json:"error,omitempty"`
	ReportID    string     `json:"report_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Work is the body of a job. It returns the identifier of the report it produced.
type Work func(ctx context.Context, progress *Progress) (string, error)

// Orchestrator runs submitted work in the background, at most concurrency
// jobs at a time, and answers status queries while they run. Jobs live only
// in memory.
type Orchestrator struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]*Job
	closed    bool
	sem       chan struct{}
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	retention time.Duration
	now       func() time.Time
	log       *zap.SugaredLogger
}

// New creates an orchestrator. Finished jobs older than retention are pruned
// on submit; a non-positive retention keeps them forever.
func New(concurrency int, retention time.Duration) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		jobs:      make(map[uuid.UUID]*Job),
		sem:       make(chan struct{}, concurrency),
		ctx:       ctx,
		cancel:    cancel,
		retention: retention,
		now:       time.Now,
		log:       logger.NewNamedLogger("orchestrator"),
	}
}

// Submit registers a queued job and starts it without blocking the caller.
func (o *Orchestrator) Submit(kind Kind, work Work) (uuid.UUID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return uuid.Nil, errs.ErrOrchestratorClosed
	}
	o.pruneLocked()

	job := &Job{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    StatusQueued,
		CreatedAt: o.now(),
	}
	o.jobs[job.ID] = job
	o.wg.Add(1)
	go o.run(job.ID, work)

	o.log.Infow("job queued", "job_id", job.ID, "kind", kind)
	return job.ID, nil
}

// Status returns a copy of the job's current state.
func (o *Orchestrator) Status(id uuid.UUID) (Job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[id]
	if !ok {
		return Job{}, errs.ErrJobNotFound
	}
	return *job, nil
}

// Shutdown rejects new jobs and waits for running and queued ones. When ctx
// expires first, in-flight work is cancelled and ctx's error is returned.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.cancel()
		return nil
	case <-ctx.Done():
		o.cancel()
		<-done
		return ctx.Err()
	}
}

func (o *Orchestrator) run(id uuid.UUID, work Work) {
	defer o.wg.Done()

	select {
	case o.sem <- struct{}{}:
	case <-o.ctx.Done():
		o.finish(id, "", errors.New("shut down before the job started"))
		return
	}
	defer func() { <-o.sem }()

	if !o.start(id) {
		return
	}
	reportID, err := o.execute(id, work)
	o.finish(id, reportID, err)
}

func (o *Orchestrator) execute(id uuid.UUID, work Work) (reportID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return work(o.ctx, &Progress{o: o, id: id})
}

func (o *Orchestrator) start(id uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[id]
	if !ok || job.Status != StatusQueued {
		return false
	}
	now := o.now()
	job.Status = StatusProcessing
	job.StartedAt = &now
	return true
}

// finish moves a job to its terminal state. Later calls are ignored.
func (o *Orchestrator) finish(id uuid.UUID, reportID string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	now := o.now()
	job.CompletedAt = &now
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		o.log.Errorw("job failed", "job_id", id, "kind", job.Kind, "error", err)
		return
	}
	job.Status = StatusCompleted
	job.ReportID = reportID
	o.log.Infow("job completed", "job_id", id, "kind", job.Kind, "report_id", reportID,
		"students", job.Total)
}

func (o *Orchestrator) pruneLocked() {
	if o.retention <= 0 {
		return
	}
	cutoff := o.now().Add(-o.retention)
	for id, job := range o.jobs {
		if job.Status.Terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(o.jobs, id)
		}
	}
}

// Progress lets running work report how far it has got.
type Progress struct {
	o  *Orchestrator
	id uuid.UUID
}

// Update records done of total students. The counter never moves backwards
// and never passes total.
func (p *Progress) Update(done, total int) {
	p.o.mu.Lock()
	defer p.o.mu.Unlock()
	job, ok := p.o.jobs[p.id]
	if !ok || job.Status != StatusProcessing {
		return
	}
	if total > job.Total {
		job.Total = total
	}
	if done > job.Total {
		done = job.Total
	}
	if done > job.Current {
		job.Current = done
	}
}
