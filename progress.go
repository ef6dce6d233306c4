package wikifetch

import (
	"context"
	"sort"
	"time"
)

// ResumeStrategy selects how the progress index is loaded.
type ResumeStrategy string

// ResumeStrategy values.
const (
	// ResumeCacheThenScan trusts a validated progress cache and falls back
	// to a full store scan.
	ResumeCacheThenScan ResumeStrategy = "cache-then-scan"

	// ResumeScanOnly always reconciles from a full store scan.
	ResumeScanOnly ResumeStrategy = "scan-only"
)

// Valid reports whether s is a known strategy.
func (s ResumeStrategy) Valid() bool {
	switch s {
	case ResumeCacheThenScan, ResumeScanOnly:
		return true
	}
	return false
}

// KeySet is a set of work item keys.
type KeySet map[string]struct{}

// NewKeySet returns a set holding keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether key is in the set. A nil set is empty.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Add inserts key into the set.
func (s KeySet) Add(key string) {
	s[key] = struct{}{}
}

// Sorted returns the keys in ascending order.
func (s KeySet) Sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy of the set.
func (s KeySet) Clone() KeySet {
	c := make(KeySet, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// ProgressIndex tracks which keys already have a persisted result.
// The index is derived state: it can always be rebuilt from the store.
type ProgressIndex interface {
	// Load returns the set of keys with a persisted result.
	Load(ctx context.Context) (KeySet, error)

	// Persist saves keys so the next Load can skip a full reconciliation.
	Persist(ctx context.Context, keys KeySet) error
}

// RunStats counts item outcomes for one run.
type RunStats struct {
	Found    int `json:"found"`
	NotFound int `json:"not_found"`
	Errors   int `json:"errors"`
}

// Processed returns the number of items that reached a final outcome.
func (s RunStats) Processed() int {
	return s.Found + s.NotFound + s.Errors
}

// SuccessRate returns found / (found + not found) as a percentage, or 0
// when nothing was resolved.
func (s RunStats) SuccessRate() float64 {
	resolved := s.Found + s.NotFound
	if resolved == 0 {
		return 0
	}
	return float64(s.Found) / float64(resolved) * 100
}

// Checkpoint is a periodic diagnostic snapshot of a run.
// It is never consulted to decide what to resume.
type Checkpoint struct {
	RunID          string    `json:"run_id"`
	Stats          RunStats  `json:"stats"`
	ProcessedCount int       `json:"processed_count"`
	TotalCount     int       `json:"total_count"`
	Timestamp      time.Time `json:"timestamp"`
}

// CheckpointWriter stores the latest checkpoint, replacing the previous one.
type CheckpointWriter interface {
	WriteCheckpoint(ctx context.Context, cp *Checkpoint) error
}
