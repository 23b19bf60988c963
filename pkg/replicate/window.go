// Package replicate implements the incremental replication engine: the
// retry policy, the two paging strategies, and the per-stream driver that
// selects between them and owns the bookmark commit points.
package replicate

import (
	"fmt"
	"time"
)

// Window is one half-open extraction range [Start, End). Windows are
// generated contiguously from the bookmark cursor to the sync upper bound,
// with no gaps and no overlaps.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// nextWindow derives the next extraction window from the current cursor.
// The start is truncated to whole seconds; the remote treats microseconds
// on its date filters inconsistently and sub-second boundaries have been
// observed to drop records at window edges. Returns false when the cursor
// has reached the upper bound.
func nextWindow(cursor time.Time, size time.Duration, upper time.Time) (Window, bool) {
	start := cursor.UTC().Truncate(time.Second)
	if !start.Before(upper) {
		return Window{}, false
	}
	end := start.Add(size)
	if end.After(upper) {
		end = upper
	}
	return Window{Start: start, End: end}, true
}
