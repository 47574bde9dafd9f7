package platform

import (
	"context"
	"strings"
)

// Platform identifies one of the supported judges.
type Platform int

const (
	Codeforces Platform = iota
	LeetCode
	CodeChef
)

// All lists the platforms in the order they are checked for every student.
var All = []Platform{Codeforces, LeetCode, CodeChef}

func (p Platform) String() string {
	switch p {
	case Codeforces:
		return "codeforces"
	case LeetCode:
		return "leetcode"
	case CodeChef:
		return "codechef"
	default:
		return "unknown"
	}
}

// Prefix is the short code used in verdict column names, e.g. "CF".
func (p Platform) Prefix() string {
	switch p {
	case Codeforces:
		return "CF"
	case LeetCode:
		return "LC"
	case CodeChef:
		return "CC"
	default:
		return ""
	}
}

// HandleColumn is the roster column holding the student's handle.
func (p Platform) HandleColumn() string {
	return strings.ToUpper(p.String())
}

// SameProblem reports whether two problem identifiers name the same problem.
// Codeforces and CodeChef codes ignore case; LeetCode slugs do not.
func (p Platform) SameProblem(a, b string) bool {
	if p == LeetCode {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// ParsePrefix maps a column prefix back to its platform.
func ParsePrefix(prefix string) (Platform, bool) {
	for _, p := range All {
		if p.Prefix() == prefix {
			return p, true
		}
	}
	return 0, false
}

// Verifier checks whether a handle solved a problem inside the recency window.
// Implementations never fail: every outcome, including transport errors, is a Verdict.
type Verifier interface {
	Verify(ctx context.Context, handle, problem string) Verdict
}
