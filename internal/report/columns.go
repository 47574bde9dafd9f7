package report

import (
	"strings"

	"github.com/R-Akshay-Kumar/coding-tracker/internal/platform"
)

const columnSeparator = ": "

// ProblemRef names one problem on one platform.
type ProblemRef struct {
	Platform platform.Platform
	Problem  string
}

// Column is the verdict column name, "{PREFIX}: {problem}".
func (p ProblemRef) Column() string {
	return ColumnName(p.Platform, p.Problem)
}

func ColumnName(p platform.Platform, problem string) string {
	return p.Prefix() + columnSeparator + problem
}

// ParseColumn recognises a verdict column. Any other name is a passthrough column.
func ParseColumn(name string) (ProblemRef, bool) {
	prefix, problem, ok := strings.Cut(name, columnSeparator)
	if !ok {
		return ProblemRef{}, false
	}
	p, ok := platform.ParsePrefix(strings.TrimSpace(prefix))
	if !ok {
		return ProblemRef{}, false
	}
	problem = strings.TrimSpace(problem)
	if problem == "" {
		return ProblemRef{}, false
	}
	return ProblemRef{Platform: p, Problem: problem}, true
}

// ProblemSet lists the requested problems per platform in request order.
type ProblemSet map[platform.Platform][]string

// NewProblemSet trims problems and drops blanks and repeats, keeping the first
// spelling seen. Repeats are matched the way the platform compares problem IDs.
func NewProblemSet(in map[platform.Platform][]string) ProblemSet {
	ps := make(ProblemSet, len(in))
	for p, problems := range in {
		for _, problem := range problems {
			ps.add(p, problem)
		}
	}
	return ps
}

func (ps ProblemSet) add(p platform.Platform, problem string) {
	problem = strings.TrimSpace(problem)
	if problem == "" {
		return
	}
	for _, existing := range ps[p] {
		if p.SameProblem(existing, problem) {
			return
		}
	}
	ps[p] = append(ps[p], problem)
}

// Refs flattens the set in declared platform order, then request order.
func (ps ProblemSet) Refs() []ProblemRef {
	var refs []ProblemRef
	for _, p := range platform.All {
		for _, problem := range ps[p] {
			refs = append(refs, ProblemRef{Platform: p, Problem: problem})
		}
	}
	return refs
}

func (ps ProblemSet) Len() int {
	n := 0
	for _, problems := range ps {
		n += len(problems)
	}
	return n
}

// InferProblemSet rebuilds the tracked problems from verdict column names.
// Every record is scanned because a student without a handle on a platform
// has no columns for it.
func InferProblemSet(records []Record) ProblemSet {
	ps := make(ProblemSet)
	for _, r := range records {
		for _, f := range r.Fields {
			if ref, ok := ParseColumn(f.Name); ok {
				ps.add(ref.Platform, ref.Problem)
			}
		}
	}
	return ps
}

// Columns orders an output table: input columns, Score, then one column per
// problem. Handle columns are removed when dropHandles is set.
func Columns(inputColumns []string, ps ProblemSet, dropHandles bool) []string {
	handles := make(map[string]bool, len(platform.All))
	if dropHandles {
		for _, p := range platform.All {
			handles[strings.ToUpper(p.HandleColumn())] = true
		}
	}

	cols := make([]string, 0, len(inputColumns)+1+ps.Len())
	for _, c := range inputColumns {
		if c == ScoreColumn || handles[strings.ToUpper(strings.TrimSpace(c))] {
			continue
		}
		if _, ok := ParseColumn(c); ok {
			continue
		}
		cols = append(cols, c)
	}
	cols = append(cols, ScoreColumn)
	for _, ref := range ps.Refs() {
		cols = append(cols, ref.Column())
	}
	return cols
}

// ReportColumns orders the columns of a stored report.
func ReportColumns(r *Report, dropHandles bool) []string {
	return Columns(r.SourceColumns(), InferProblemSet(r.Records), dropHandles)
}
