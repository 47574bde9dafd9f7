// Package tracker provides a Go client for the coding-tracker API.
//
// The API verifies that a roster of students recently solved a set of
// problems on Codeforces, LeetCode and CodeChef, and produces a report.
//
// Usage:
//
//	client := tracker.New("http://localhost:8000", "your-api-key")
//
//	f, _ := os.Open("class.xlsx")
//	queued, err := client.Checks.Start(ctx, "class.xlsx", f, tracker.Problems{
//	    Codeforces: []string{"1790A"},
//	    LeetCode:   []string{"two-sum"},
//	})
//	job, err := client.Checks.Wait(ctx, queued.JobID, 2*time.Second)
//	rep, err := client.Reports.View(ctx, job.ReportID, nil)
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client is the tracker API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	// Service accessors
	Checks  *ChecksService
	Reports *ReportsService
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a tracker client.
// baseURL should be the root URL (e.g. "http://localhost:8000").
// apiKey is sent as a Bearer token; leave it empty when the server runs
// without API_KEY.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	c.Checks = &ChecksService{c: c}
	c.Reports = &ReportsService{c: c}
	return c
}

// Health checks that the tracker server is reachable and healthy.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return doRequest[HealthResponse](ctx, c, http.MethodGet, "/health", nil, "", nil, http.StatusOK)
}

// --- internal helpers ---

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, expectedStatus int) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, query, body, contentType)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != expectedStatus {
		defer resp.Body.Close()
		return nil, parseError(resp)
	}
	return resp, nil
}

func doRequest[T any](ctx context.Context, c *Client, method, path string, query url.Values, contentType string, body io.Reader, expectedStatus int) (*T, error) {
	resp, err := c.do(ctx, method, path, query, body, contentType, expectedStatus)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tracker: decode response: %w", err)
	}
	return &out, nil
}

func downloadBytes(ctx context.Context, c *Client, path string, opts *ViewOptions) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, path, viewQuery(opts), nil, "", http.StatusOK)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func viewQuery(opts *ViewOptions) url.Values {
	if opts == nil || !opts.DropHandles {
		return nil
	}
	return url.Values{"drop_handles": {"true"}}
}

func parseError(resp *http.Response) *APIError {
	e := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		e.Message = body.Error
	} else {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}
