package platform

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const acceptedIconMarker = "tick"

// CodeChefVerifier scrapes the recent activity feed. The feed carries relative
// times ("2 days ago") rather than timestamps.
type CodeChefVerifier struct {
	baseClient
}

type codechefRecent struct {
	Content *string `json:"content"`
}

func NewCodeChefVerifier(cfg ClientConfig) *CodeChefVerifier {
	return &CodeChefVerifier{baseClient: newBaseClient(CodeChef, cfg)}
}

func (v *CodeChefVerifier) Verify(ctx context.Context, handle, problem string) Verdict {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return Verdict{Kind: NoAccount}
	}

	q := url.Values{}
	q.Set("page", "0")
	q.Set("user_handle", handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/recent/user?"+q.Encode(), nil)
	if err != nil {
		return adapterError(MalformedResponse, "build request: %v", err)
	}
	req.Header.Set("User-Agent", browserAgent)

	var recent codechefRecent
	if err := v.fetchJSON(req, &recent); err != nil {
		return v.failure(handle, problem, err)
	}
	if recent.Content == nil {
		v.log.Infow("handle rejected", "handle", handle)
		return noAccount("no recent activity feed for handle")
	}

	content := *recent.Content
	// Table rows are dropped by the HTML parser unless they sit inside a table.
	if !strings.Contains(strings.ToLower(content), "<table") {
		content = "<table>" + content + "</table>"
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return adapterError(ParseFailure, "parse activity feed: %v", err)
	}

	rows := doc.Find("tr")
	if rows.Length() == 0 {
		return notSolved(NoActivity, "no recent activity")
	}

	target := strings.ToUpper(strings.TrimSpace(problem))
	found, stale := false, false
	var parseErr error
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return true
		}
		if strings.ToUpper(strings.TrimSpace(cells.Eq(1).Text())) != target {
			return true
		}
		src, _ := cells.Eq(2).Find("img").Attr("src")
		if !strings.Contains(src, acceptedIconMarker) {
			return true
		}
		recentEnough, err := ParseRelativeAge(cells.Eq(0).Text())
		if err != nil {
			parseErr = err
			return true
		}
		if !recentEnough {
			stale = true
			return true
		}
		found = true
		return false
	})

	switch {
	case found:
		return solved()
	case parseErr != nil:
		v.log.Warnw("relative time not parseable", "handle", handle, "problem", problem, "error", parseErr)
		return adapterError(ParseFailure, "%v", parseErr)
	case stale:
		return notSolved(StaleSubmission, "accepted submission is older than the recency window")
	default:
		return notSolved(ReasonNone, "")
	}
}
