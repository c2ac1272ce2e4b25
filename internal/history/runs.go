// Package history keeps a bounded record of recent analysis runs, used by
// watch mode to report how the score moves between runs.
package history

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Run summarizes one completed analysis
type Run struct {
	At            time.Time
	Score         float64
	FunctionPairs int
	ModelPairs    int
	Duration      time.Duration
}

// Runs holds the most recent runs, oldest first
type Runs struct {
	runs    []Run
	maxSize int
	mu      sync.RWMutex
}

// New creates a history retaining at most maxSize runs (minimum 2, so a
// delta is always available after the second run)
func New(maxSize int) *Runs {
	maxSize = max(maxSize, 2)
	return &Runs{
		runs:    make([]Run, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add records a run
func (h *Runs) Add(r Run) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.runs = append(h.runs, r)

	// Keep only the last maxSize runs
	if len(h.runs) > h.maxSize {
		h.runs = h.runs[len(h.runs)-h.maxSize:]
	}
}

// All returns a copy of the retained runs
func (h *Runs) All() []Run {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Run, len(h.runs))
	copy(result, h.runs)
	return result
}

// Last returns the last n runs
func (h *Runs) Last(n int) []Run {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n = min(max(n, 0), len(h.runs))
	result := make([]Run, n)
	copy(result, h.runs[len(h.runs)-n:])
	return result
}

// Delta returns the score change between the two latest runs. ok is false
// until two runs have been recorded.
func (h *Runs) Delta() (delta float64, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.runs) < 2 {
		return 0, false
	}
	n := len(h.runs)
	return h.runs[n-1].Score - h.runs[n-2].Score, true
}

// Size returns the number of retained runs
func (h *Runs) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.runs)
}

// Clear forgets every run
func (h *Runs) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.runs = make([]Run, 0, h.maxSize)
}

// String renders one line per run
func (h *Runs) String() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var sb strings.Builder
	for _, r := range h.runs {
		fmt.Fprintf(&sb, "[%s] score=%.2f functions=%d models=%d (%s)\n",
			r.At.Format(time.RFC3339), r.Score, r.FunctionPairs, r.ModelPairs, r.Duration)
	}
	return sb.String()
}
