package checker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/R-Akshay-Kumar/coding-tracker/internal/logger"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/platform"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/report"
)

// ProgressFunc receives the number of fully processed students and the total.
type ProgressFunc func(done, total int)

// Processor verifies a roster one student at a time.
type Processor struct {
	verifiers map[platform.Platform]platform.Verifier
	pacing    time.Duration
	log       *zap.SugaredLogger
}

// NewProcessor waits pacing between consecutive students.
func NewProcessor(verifiers map[platform.Platform]platform.Verifier, pacing time.Duration) *Processor {
	return &Processor{
		verifiers: verifiers,
		pacing:    pacing,
		log:       logger.NewNamedLogger("processor"),
	}
}

// Run checks every student against problems and returns one scored record per
// student, in input order. handles maps a platform to the field holding the
// student's handle; platforms missing from it are skipped for everyone.
func (p *Processor) Run(
	ctx context.Context,
	students []report.Record,
	handles map[platform.Platform]string,
	problems report.ProblemSet,
	progress ProgressFunc,
) ([]report.Record, error) {
	total := len(students)
	if progress != nil {
		progress(0, total)
	}

	out := make([]report.Record, 0, total)
	for i, student := range students {
		if i > 0 {
			if err := p.pause(ctx); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out = append(out, p.checkStudent(ctx, i, student, handles, problems))
		if progress != nil {
			progress(i+1, total)
		}
	}
	return out, nil
}

func (p *Processor) checkStudent(
	ctx context.Context,
	index int,
	student report.Record,
	handles map[platform.Platform]string,
	problems report.ProblemSet,
) report.Record {
	rec := student.WithoutVerdicts()
	score := 0
	for _, plat := range platform.All {
		if len(problems[plat]) == 0 {
			continue
		}
		column, ok := handles[plat]
		if !ok {
			continue
		}
		handle, _ := rec.Get(column)
		handle = strings.TrimSpace(handle)
		if handle == "" {
			continue
		}
		verifier, ok := p.verifiers[plat]
		if !ok {
			p.log.Warnf("no verifier configured for %s", plat)
			continue
		}

		for _, problem := range problems[plat] {
			verdict := p.safeVerify(ctx, verifier, handle, problem)
			if verdict.Failed() {
				p.log.Warnw("verification diagnostic",
					"student", index, "platform", plat.String(), "handle", handle,
					"problem", problem, "kind", verdict.Kind.String(),
					"reason", verdict.Reason.String(), "detail", verdict.Detail)
			}
			label := platform.Simplify(verdict)
			if label == platform.SolvedLabel {
				score++
			}
			rec.Set(report.ColumnName(plat, problem), label)
		}
	}
	rec.Score = score
	return rec
}

// safeVerify turns a panicking verifier into an AdapterError for this problem
// so the rest of the roster still runs.
func (p *Processor) safeVerify(ctx context.Context, v platform.Verifier, handle, problem string) (verdict platform.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = platform.Verdict{Kind: platform.AdapterError, Detail: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return v.Verify(ctx, handle, problem)
}

func (p *Processor) pause(ctx context.Context) error {
	if p.pacing <= 0 {
		return nil
	}
	timer := time.NewTimer(p.pacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
