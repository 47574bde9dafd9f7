package tracker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ChecksService starts verification jobs and follows their progress.
type ChecksService struct {
	c *Client
}

// Start uploads a roster (.csv or .xlsx) and queues a check of the given
// problems. The returned job ID is used with Progress, Wait and Download.
func (s *ChecksService) Start(ctx context.Context, filename string, roster io.Reader, problems Problems) (*QueuedResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, roster); err != nil {
		return nil, fmt.Errorf("tracker: read roster: %w", err)
	}
	fields := map[string][]string{
		"cf_problems": problems.Codeforces,
		"lc_problems": problems.LeetCode,
		"cc_problems": problems.CodeChef,
	}
	for name, values := range fields {
		if len(values) == 0 {
			continue
		}
		if err := mw.WriteField(name, strings.Join(values, ",")); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return doRequest[QueuedResponse](ctx, s.c, http.MethodPost, "/start-check", nil,
		mw.FormDataContentType(), &body, http.StatusAccepted)
}

// Progress returns the current state of a check or refresh job.
func (s *ChecksService) Progress(ctx context.Context, jobID string) (*Job, error) {
	return doRequest[Job](ctx, s.c, http.MethodGet, "/progress/"+jobID, nil, "", nil, http.StatusOK)
}

// Wait polls Progress every interval until the job completes or fails, or
// ctx is done.
func (s *ChecksService) Wait(ctx context.Context, jobID string, interval time.Duration) (*Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := s.Progress(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Done() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Download returns the workbook of a completed job. The server answers 409
// while the job is still running.
func (s *ChecksService) Download(ctx context.Context, jobID string, opts *ViewOptions) ([]byte, error) {
	return downloadBytes(ctx, s.c, "/download/"+jobID, opts)
}
