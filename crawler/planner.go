package crawler

import (
	"time"

	"github.com/kimata/mohist/models"
)

// classification of a period for the current run.
type classification int

const (
	// classSkip means the period is immutable history: fully checked and
	// strictly before the reopen boundary.
	classSkip classification = iota
	// classFetch means the period must be (re)examined.
	classFetch
)

// reopenBoundary is the first day of the month containing the last
// successful sync. Periods at or after it may still accrue new orders
// between runs and are always re-examined; checked periods before it are
// treated as immutable. A zero lastSyncAt reopens everything, which is how
// a first run observes the full history.
func reopenBoundary(lastSyncAt time.Time) time.Time {
	return time.Date(lastSyncAt.Year(), lastSyncAt.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// classify applies the two-tier rule: the checked flag bounds work to
// never-completed periods, the time boundary overrides it for the window
// that may still change.
func classify(p models.Period, checked bool, boundary time.Time) classification {
	if checked && p.Start().Before(boundary) {
		return classSkip
	}
	return classFetch
}
