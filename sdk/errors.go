package tracker

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned when the tracker API responds with a non-success status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tracker: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err means the job or report does not exist.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsNotReady reports whether err means the job has not completed yet, as
// returned by Checks.Download while the check is still running.
func IsNotReady(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

// IsShuttingDown reports whether the server refused a new job because it is
// draining.
func IsShuttingDown(err error) bool {
	return hasStatus(err, http.StatusServiceUnavailable)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
