package api

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

// RunState is the lifecycle stage reported by /v1/status.
type RunState string

// Run states.
const (
	StateStarting RunState = "starting"
	StateRunning  RunState = "running"
	StateFinished RunState = "finished"
	StateFailed   RunState = "failed"
)

// Status is the JSON body of /v1/status.
type Status struct {
	JobName   string               `json:"job_name"`
	RunID     string               `json:"run_id"`
	Mode      string               `json:"mode"`
	State     RunState             `json:"state"`
	UpdatedAt time.Time            `json:"updated_at"`
	Error     string               `json:"error,omitempty"`
	Summaries []crawler.RunSummary `json:"summaries,omitempty"`
}

// Tracker holds the process status shared between the crawl goroutine and
// HTTP handlers.
type Tracker struct {
	mu     sync.RWMutex
	status Status
	clock  crawler.Clock
}

// NewTracker starts tracking a run in the starting state.
func NewTracker(jobName, runID, mode string, clock crawler.Clock) *Tracker {
	t := &Tracker{clock: clock}
	t.status = Status{
		JobName:   jobName,
		RunID:     runID,
		Mode:      mode,
		State:     StateStarting,
		UpdatedAt: clock.Now(),
	}
	return t
}

// SetState moves the run to state.
func (t *Tracker) SetState(state RunState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = state
	t.status.UpdatedAt = t.clock.Now()
}

// Fail records err and moves the run to the failed state.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateFailed
	if err != nil {
		t.status.Error = err.Error()
	}
	t.status.UpdatedAt = t.clock.Now()
}

// Report implements crawler.RunReporter so finished runs show up in the status.
func (t *Tracker) Report(_ context.Context, summary crawler.RunSummary) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Summaries = append(t.status.Summaries, summary)
	t.status.UpdatedAt = t.clock.Now()
	return nil
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := t.status
	out.Summaries = append([]crawler.RunSummary(nil), t.status.Summaries...)
	return out
}

// Ready reports whether the process has started crawling.
func (t *Tracker) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status.State != StateStarting
}
