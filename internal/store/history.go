package store

import (
	"errors"
	"sync"

	"github.com/weatherpipe/weatherpipe/internal/pipeline"
)

var (
	// ErrNoRuns is returned when no pipeline run has been recorded yet.
	ErrNoRuns = errors.New("no pipeline runs recorded")
)

// RunHistory is a concurrency-safe in-memory record of recent pipeline runs,
// newest last. It backs the admin API; the durable record of each run lives
// in object storage.
type RunHistory struct {
	mu sync.RWMutex

	runs []*pipeline.Outcome

	// max number of runs to retain; <= 0 means unlimited
	maxRuns int
}

// NewRunHistory creates a RunHistory retaining at most maxRuns entries.
func NewRunHistory(maxRuns int) *RunHistory {
	return &RunHistory{maxRuns: maxRuns}
}

// Record appends a completed run and enforces retention.
func (h *RunHistory) Record(outcome *pipeline.Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.runs = append(h.runs, outcome)

	if h.maxRuns > 0 && len(h.runs) > h.maxRuns {
		over := len(h.runs) - h.maxRuns
		h.runs = h.runs[over:]
	}
}

// Latest returns the most recently recorded run.
func (h *RunHistory) Latest() (*pipeline.Outcome, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.runs) == 0 {
		return nil, ErrNoRuns
	}
	return h.runs[len(h.runs)-1], nil
}

// List returns all retained runs, oldest first.
func (h *RunHistory) List() []*pipeline.Outcome {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*pipeline.Outcome, len(h.runs))
	copy(out, h.runs)
	return out
}
