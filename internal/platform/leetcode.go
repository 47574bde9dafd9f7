package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

const recentAcceptedQuery = `query recentAcSubmissionList($username: String!) {
  recentAcSubmissionList(username: $username, limit: 20) {
    titleSlug
    timestamp
  }
}`

// LeetCodeVerifier checks the recent accepted submissions GraphQL feed.
type LeetCodeVerifier struct {
	baseClient
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type leetcodeResponse struct {
	Data *struct {
		RecentAcSubmissionList []leetcodeSubmission `json:"recentAcSubmissionList"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type leetcodeSubmission struct {
	TitleSlug string `json:"titleSlug"`
	Timestamp string `json:"timestamp"`
}

func NewLeetCodeVerifier(cfg ClientConfig) *LeetCodeVerifier {
	return &LeetCodeVerifier{baseClient: newBaseClient(LeetCode, cfg)}
}

func (v *LeetCodeVerifier) Verify(ctx context.Context, handle, problem string) Verdict {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return Verdict{Kind: NoAccount}
	}

	body, err := json.Marshal(graphqlRequest{
		Query:     recentAcceptedQuery,
		Variables: map[string]any{"username": handle},
	})
	if err != nil {
		return adapterError(MalformedResponse, "marshal query: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return adapterError(MalformedResponse, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", v.baseURL)

	var resp leetcodeResponse
	if err := v.fetchJSON(req, &resp); err != nil {
		return v.failure(handle, problem, err)
	}
	if len(resp.Errors) > 0 {
		v.log.Infow("handle rejected", "handle", handle, "error", resp.Errors[0].Message)
		return noAccount(resp.Errors[0].Message)
	}
	if resp.Data == nil {
		return v.failure(handle, problem, errDecode)
	}

	subs := resp.Data.RecentAcSubmissionList
	if len(subs) == 0 {
		return notSolved(NoAcceptedSubmissions, "no recent accepted submissions")
	}

	target := strings.TrimSpace(problem)
	now := v.now()
	stale := false
	var badTimestamp string
	for _, sub := range subs {
		if strings.TrimSpace(sub.TitleSlug) != target {
			continue
		}
		ts, err := strconv.ParseInt(strings.TrimSpace(sub.Timestamp), 10, 64)
		if err != nil {
			badTimestamp = sub.Timestamp
			continue
		}
		if WithinWindow(ts, now) {
			return solved()
		}
		stale = true
	}
	if badTimestamp != "" {
		return adapterError(MalformedResponse, "invalid submission timestamp %q", badTimestamp)
	}
	if stale {
		return notSolved(StaleSubmission, "accepted submission is older than the recency window")
	}
	return notSolved(ReasonNone, "")
}
