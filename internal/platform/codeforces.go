package platform

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultSubmissionCount = 100
	codeforcesAccepted     = "OK"
)

// CodeforcesVerifier checks the user.status submission history API.
type CodeforcesVerifier struct {
	baseClient
	count int
}

type codeforcesStatus struct {
	Status  string                 `json:"status"`
	Comment string                 `json:"comment"`
	Result  []codeforcesSubmission `json:"result"`
}

type codeforcesSubmission struct {
	Problem struct {
		ContestID *int   `json:"contestId"`
		Index     string `json:"index"`
	} `json:"problem"`
	Verdict             string `json:"verdict"`
	CreationTimeSeconds int64  `json:"creationTimeSeconds"`
}

// NewCodeforcesVerifier fetches the latest count submissions per check.
func NewCodeforcesVerifier(cfg ClientConfig, count int) *CodeforcesVerifier {
	if count <= 0 {
		count = defaultSubmissionCount
	}
	return &CodeforcesVerifier{baseClient: newBaseClient(Codeforces, cfg), count: count}
}

func (v *CodeforcesVerifier) Verify(ctx context.Context, handle, problem string) Verdict {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return Verdict{Kind: NoAccount}
	}

	q := url.Values{}
	q.Set("handle", handle)
	q.Set("from", "1")
	q.Set("count", strconv.Itoa(v.count))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/api/user.status?"+q.Encode(), nil)
	if err != nil {
		return adapterError(MalformedResponse, "build request: %v", err)
	}

	var status codeforcesStatus
	if err := v.fetchJSON(req, &status); err != nil {
		return v.failure(handle, problem, err)
	}
	if status.Status != codeforcesAccepted {
		v.log.Infow("handle rejected", "handle", handle, "comment", status.Comment)
		return noAccount(status.Comment)
	}

	target := strings.ToUpper(strings.TrimSpace(problem))
	now := v.now()
	stale := false
	for _, sub := range status.Result {
		if sub.Problem.ContestID == nil {
			continue
		}
		id := strconv.Itoa(*sub.Problem.ContestID) + sub.Problem.Index
		if !strings.EqualFold(id, target) || sub.Verdict != codeforcesAccepted {
			continue
		}
		if WithinWindow(sub.CreationTimeSeconds, now) {
			return solved()
		}
		stale = true
	}
	if stale {
		return notSolved(StaleSubmission, "accepted submission is older than the recency window")
	}
	return notSolved(ReasonNone, "")
}
