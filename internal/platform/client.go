package platform

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/R-Akshay-Kumar/coding-tracker/internal/logger"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
	browserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

var (
	errFetch  = errors.New("fetch failed")
	errDecode = errors.New("unexpected response")
)

// ClientConfig holds the connection settings shared by every verifier.
// Now defaults to time.Now and is overridable for tests.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Now     func() time.Time
}

type baseClient struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
	log     *zap.SugaredLogger
}

func newBaseClient(p Platform, cfg ClientConfig) baseClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return baseClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		now:     now,
		log:     logger.NewNamedLogger(p.String()),
	}
}

// fetchJSON performs req and decodes the body into out. Transport failures,
// throttling and server errors wrap errFetch; undecodable bodies wrap errDecode.
func (c *baseClient) fetchJSON(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", errFetch, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: HTTP %d", errFetch, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: HTTP %d: %v", errDecode, resp.StatusCode, err)
	}
	return nil
}

func (c *baseClient) failure(handle, problem string, err error) Verdict {
	if errors.Is(err, errDecode) {
		c.log.Warnw("malformed response", "handle", handle, "problem", problem, "error", err)
		return adapterError(MalformedResponse, "%v", err)
	}
	c.log.Warnw("fetch failed", "handle", handle, "problem", problem, "error", err)
	return adapterError(TransientFetchFailure, "%v", err)
}
