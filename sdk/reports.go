package tracker

import (
	"context"
	"net/http"
)

// ReportsService reads and refreshes stored reports.
type ReportsService struct {
	c *Client
}

// View returns a report as JSON rows.
func (s *ReportsService) View(ctx context.Context, reportID string, opts *ViewOptions) (*Report, error) {
	return doRequest[Report](ctx, s.c, http.MethodGet, "/view-report/"+reportID, viewQuery(opts), "", nil, http.StatusOK)
}

// Download returns a report as an xlsx workbook.
func (s *ReportsService) Download(ctx context.Context, reportID string, opts *ViewOptions) ([]byte, error) {
	return downloadBytes(ctx, s.c, "/download-report/"+reportID, opts)
}

// Refresh queues a re-verification of every student in the report against
// the problems it already lists.
func (s *ReportsService) Refresh(ctx context.Context, reportID string) (*QueuedResponse, error) {
	return doRequest[QueuedResponse](ctx, s.c, http.MethodPost, "/refresh-report/"+reportID, nil, "", nil, http.StatusAccepted)
}
