package platform

import "fmt"

type Kind int

const (
	NotSolved Kind = iota
	Solved
	NoAccount
	AdapterError
)

func (k Kind) String() string {
	switch k {
	case Solved:
		return "solved"
	case NotSolved:
		return "not_solved"
	case NoAccount:
		return "no_account"
	case AdapterError:
		return "adapter_error"
	default:
		return "unknown"
	}
}

// Reason refines a Verdict for logging. It never affects scoring.
type Reason int

const (
	ReasonNone Reason = iota
	InvalidHandle
	TransientFetchFailure
	MalformedResponse
	StaleSubmission
	ParseFailure
	NoActivity
	NoAcceptedSubmissions
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case InvalidHandle:
		return "invalid_handle"
	case TransientFetchFailure:
		return "transient_fetch_failure"
	case MalformedResponse:
		return "malformed_response"
	case StaleSubmission:
		return "stale_submission"
	case ParseFailure:
		return "parse_failure"
	case NoActivity:
		return "no_activity"
	case NoAcceptedSubmissions:
		return "no_accepted_submissions"
	default:
		return "unknown"
	}
}

type Verdict struct {
	Kind   Kind
	Reason Reason
	Detail string
}

const (
	SolvedLabel    = "Solved"
	NotSolvedLabel = "Not Solved"
)

// Simplify collapses a verdict into the label stored in reports.
func Simplify(v Verdict) string {
	if v.Kind == Solved {
		return SolvedLabel
	}
	return NotSolvedLabel
}

// Failed reports whether the verdict should be surfaced as a diagnostic.
func (v Verdict) Failed() bool {
	switch v.Kind {
	case AdapterError:
		return true
	case NoAccount:
		return v.Reason == InvalidHandle
	}
	return v.Reason == ParseFailure || v.Reason == MalformedResponse
}

func (v Verdict) String() string {
	if v.Detail == "" {
		return fmt.Sprintf("%s(%s)", v.Kind, v.Reason)
	}
	return fmt.Sprintf("%s(%s): %s", v.Kind, v.Reason, v.Detail)
}

func solved() Verdict { return Verdict{Kind: Solved} }

func notSolved(reason Reason, detail string) Verdict {
	return Verdict{Kind: NotSolved, Reason: reason, Detail: detail}
}

func adapterError(reason Reason, format string, args ...any) Verdict {
	return Verdict{Kind: AdapterError, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func noAccount(detail string) Verdict {
	return Verdict{Kind: NoAccount, Reason: InvalidHandle, Detail: detail}
}
