// Package lifecycle decides whether a notice is still open for submissions.
package lifecycle

import (
	"strings"
	"time"

	"github.com/starford/tenderwatch/internal/models"
)

// DeadlineLayout is the gazette's "DD-MM-YYYY HH:MM" format.
const DeadlineLayout = "02-01-2006 15:04"

// ParseDeadline parses s in loc. ok is false for empty, "N/A" or malformed input.
func ParseDeadline(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == models.Unknown {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DeadlineLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsActive reports whether n's submission deadline is at or after ref.
// Deadlines are naive local times and are read in ref's location.
func IsActive(n models.Notice, ref time.Time) bool {
	deadline, ok := ParseDeadline(n.SubmissionDeadline, ref.Location())
	if !ok {
		return false
	}
	return !deadline.Before(ref)
}

// Filter returns the active notices of ns in order and the number dropped.
func Filter(ns []models.Notice, ref time.Time) ([]models.Notice, int) {
	out := make([]models.Notice, 0, len(ns))
	for _, n := range ns {
		if IsActive(n, ref) {
			out = append(out, n)
		}
	}
	return out, len(ns) - len(out)
}
