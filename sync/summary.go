// ABOUTME: Run summary accounting for sync pipelines
// ABOUTME: Tracks fetched, classified, materialized, skipped, and failed counts
package sync

import (
	"fmt"
	"sync"
	"time"
)

// SkipEntry records one item passed over with a human-readable reason.
type SkipEntry struct {
	Item   string
	Reason string
}

// FailureEntry records one item that errored, identified by its code or
// product name.
type FailureEntry struct {
	Item string
	Err  string
}

// Summary is the caller-visible result of one sync run. It is always
// returned on completion, even when individual items skipped or failed;
// only total inability to reach the merchant API aborts a run without one.
type Summary struct {
	mu sync.Mutex

	Fetched      int
	Compatible   int
	Incompatible int
	Materialized int
	Skipped      []SkipEntry
	Failed       []FailureEntry
	Started      time.Time
	Finished     time.Time
}

func newSummary() *Summary {
	return &Summary{Started: time.Now()}
}

func (s *Summary) addMaterialized() {
	s.mu.Lock()
	s.Materialized++
	s.mu.Unlock()
}

func (s *Summary) addSkip(item, reason string) {
	s.mu.Lock()
	s.Skipped = append(s.Skipped, SkipEntry{Item: item, Reason: reason})
	s.mu.Unlock()
}

func (s *Summary) addFailure(item string, err error) {
	s.mu.Lock()
	s.Failed = append(s.Failed, FailureEntry{Item: item, Err: err.Error()})
	s.mu.Unlock()
}

func (s *Summary) finish() {
	s.Finished = time.Now()
}

// String renders the one-line operator summary.
func (s *Summary) String() string {
	return fmt.Sprintf("fetched=%d compatible=%d incompatible=%d materialized=%d skipped=%d failed=%d elapsed=%s",
		s.Fetched, s.Compatible, s.Incompatible, s.Materialized,
		len(s.Skipped), len(s.Failed), s.Finished.Sub(s.Started).Round(time.Millisecond))
}
