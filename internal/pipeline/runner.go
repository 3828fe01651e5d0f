package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/MichalGrecer/Customer-Finder/internal/search"
)

// ErrRunInProgress is returned by Start while a previous run is still active.
var ErrRunInProgress = errors.New("a run is already in progress")

// Runner serializes pipeline runs: at most one is active at a time. Progress
// of the current (or last) run is observable through Status.
type Runner struct {
	pipeline *Pipeline
	sink     *StatusSink

	mu      sync.Mutex
	running bool
}

func NewRunner(p *Pipeline) *Runner {
	return &Runner{pipeline: p, sink: NewStatusSink()}
}

// Start launches a run in the background. It refuses to start when phrases
// are missing, credentials are not configured, or a run is active.
func (r *Runner) Start(ctx context.Context, req Request) error {
	if len(req.Phrases) == 0 {
		return errors.New("no search phrases provided")
	}
	if !r.pipeline.search.Ready() {
		return search.ErrNoCredentials
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()

	r.sink.reset()
	go func() {
		defer func() {
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
		}()
		r.pipeline.Run(ctx, req, r.sink)
	}()
	return nil
}

// Status returns a snapshot of the current or most recent run.
func (r *Runner) Status() Status {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()

	s := r.sink.Snapshot()
	s.Running = running
	return s
}

// Status is a point-in-time view of a run.
type Status struct {
	Stage        string `json:"stage"`
	Message      string `json:"message"`
	Current      int    `json:"current"`
	Total        int    `json:"total"`
	QuotaUsed    int    `json:"quota_used"`
	RecordsAdded int    `json:"records_added"`
	AbortReason  string `json:"abort_reason,omitempty"`
	Error        string `json:"error,omitempty"`
	Running      bool   `json:"running"`
}

// StatusSink accumulates pipeline callbacks into a snapshot.
type StatusSink struct {
	mu sync.Mutex
	s  Status
}

func NewStatusSink() *StatusSink {
	return &StatusSink{s: Status{Stage: StageIdle.String()}}
}

func (ss *StatusSink) reset() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.s = Status{Stage: StageIdle.String()}
}

func (ss *StatusSink) StageChanged(stage Stage, message string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.s.Stage = stage.String()
	ss.s.Message = message
}

func (ss *StatusSink) Progress(current, total int) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.s.Current = current
	ss.s.Total = total
}

func (ss *StatusSink) QuotaCount(count int) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.s.QuotaUsed = count
}

func (ss *StatusSink) QuotaLow(count int) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.s.Message = "daily quota running low"
	ss.s.QuotaUsed = count
}

func (ss *StatusSink) QuotaExhausted() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.s.Message = "daily quota exhausted"
}

func (ss *StatusSink) Finished(added int) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.s.RecordsAdded = added
}

func (ss *StatusSink) Aborted(reason string, err error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.s.AbortReason = reason
	if err != nil {
		ss.s.Error = err.Error()
	}
}

// Snapshot returns a copy of the accumulated status.
func (ss *StatusSink) Snapshot() Status {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s
}
