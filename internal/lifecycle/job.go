package lifecycle

import (
	"context"
	"time"

	"github.com/surge-downloader/tubepanel/internal/engine/types"
)

// JobState is the client-side state of the download slot.
type JobState int

const (
	StateIdle JobState = iota
	StateValidating
	StateRunning
	StateCompleted
	StateFailed
	StateTimedOut
)

func (s JobState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Busy reports whether the state occupies the slot.
func (s JobState) Busy() bool {
	return s == StateValidating || s == StateRunning
}

// Terminal reports whether the state is one of the three outcomes.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimedOut
}

// Job is a snapshot of the single download slot.
type Job struct {
	ID        string
	Request   types.DownloadRequest
	Title     string
	Progress  int
	State     JobState
	StartedAt time.Time
	// Simulated is set because progress is derived from poll count, not
	// from the engine.
	Simulated bool
	// Abandoned is set when the user stopped observing the job.
	Abandoned bool
}

// JobHandle is returned by Submit and lets callers wait for the outcome.
type JobHandle struct {
	ID    string
	Title string

	done   chan struct{}
	result Job
}

func newHandle(id, title string) *JobHandle {
	return &JobHandle{ID: id, Title: title, done: make(chan struct{})}
}

// Done is closed once the job reaches a terminal state or the client closes.
func (h *JobHandle) Done() <-chan struct{} { return h.done }

// Wait blocks until the job ends and returns its final snapshot.
func (h *JobHandle) Wait(ctx context.Context) (Job, error) {
	select {
	case <-h.done:
		if !h.result.State.Terminal() {
			return h.result, ErrClosed
		}
		return h.result, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// PollOutcome describes what a single status lookup did.
type PollOutcome int

const (
	// PollSkipped means no job was running or a poll was already in flight.
	PollSkipped PollOutcome = iota
	// PollUnchanged means the status was pending, missing or unreadable.
	PollUnchanged
	// PollProgressed means progress advanced by one step.
	PollProgressed
	// PollCompleted means the job finished successfully.
	PollCompleted
	// PollFailed means the backend reported failure or cancellation.
	PollFailed
	// PollDiscarded means the job ended while the lookup was in flight.
	PollDiscarded
)

// Terminal reports whether the poll ended the job.
func (o PollOutcome) Terminal() bool {
	return o == PollCompleted || o == PollFailed
}

func (o PollOutcome) String() string {
	switch o {
	case PollSkipped:
		return "skipped"
	case PollUnchanged:
		return "unchanged"
	case PollProgressed:
		return "progressed"
	case PollCompleted:
		return "completed"
	case PollFailed:
		return "failed"
	case PollDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}
