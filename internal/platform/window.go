package platform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	errs "github.com/R-Akshay-Kumar/coding-tracker/internal/errors"
)

// RecencyWindow is how far back a submission may be and still count.
const RecencyWindow = 5 * 24 * time.Hour

const recencyWindowDays = 5

// WithinWindow reports whether a unix timestamp falls inside the window ending at now.
// A submission exactly at the cutoff counts.
func WithinWindow(ts int64, now time.Time) bool {
	cutoff := now.Unix() - int64(RecencyWindow/time.Second)
	return ts >= cutoff
}

// ParseRelativeAge interprets strings such as "10 hours ago" or "2 days ago".
// Seconds, minutes and hours are always recent. Days are recent when the leading
// number is at most five. Any other unit is stale. A day string whose leading
// token is not a number yields ErrUnparseableAge.
func ParseRelativeAge(s string) (bool, error) {
	text := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(text, "sec"), strings.Contains(text, "min"), strings.Contains(text, "hour"):
		return true, nil
	case strings.Contains(text, "day"):
		fields := strings.Fields(text)
		if len(fields) == 0 {
			return false, fmt.Errorf("%w: %q", errs.ErrUnparseableAge, s)
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return false, fmt.Errorf("%w: %q", errs.ErrUnparseableAge, s)
		}
		return n <= recencyWindowDays, nil
	default:
		return false, nil
	}
}
