package tracker

import "time"

// HealthResponse is returned by the /health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// --- Jobs ---

// Job states as reported by the progress endpoint.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// QueuedResponse is returned when a check or refresh job is accepted.
type QueuedResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Job is the progress snapshot of a background job.
type Job struct {
	JobID    string `json:"job_id"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	Error    string `json:"error,omitempty"`
	ReportID string `json:"report_id,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// --- Checks ---

// Problems lists the problem identifiers to verify per platform: Codeforces
// contest+index ("1790A"), LeetCode slugs and CodeChef codes.
type Problems struct {
	Codeforces []string
	LeetCode   []string
	CodeChef   []string
}

// --- Reports ---

// Report is a stored report as returned by GET /view-report/:id. Data rows are
// keyed by column name; "Score" decodes as a float64.
type Report struct {
	ReportID      string           `json:"report_id"`
	Columns       []string         `json:"columns"`
	Data          []map[string]any `json:"data"`
	CreatedAt     time.Time        `json:"created_at"`
	LastUpdated   *time.Time       `json:"last_updated"`
	TotalStudents int              `json:"total_students"`
}

// ViewOptions controls how a report is rendered.
type ViewOptions struct {
	// DropHandles omits the platform handle columns.
	DropHandles bool
}
