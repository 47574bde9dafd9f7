package errors

import "errors"

var (
	ErrReportNotFound     = errors.New("report not found")
	ErrJobNotFound        = errors.New("job not found")
	ErrUnparseableAge     = errors.New("unparseable relative time")
	ErrInvalidRoster      = errors.New("invalid roster")
	ErrUnsupportedFormat  = errors.New("unsupported roster format")
	ErrOrchestratorClosed = errors.New("orchestrator is shut down")
	ErrJobNotCompleted    = errors.New("job has not completed")
)
