package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/surge-downloader/tubepanel/internal/engine/events"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/utils"
)

// Backend is the part of core.DownloadService the client needs.
type Backend interface {
	ValidateURL(ctx context.Context, url string) (bool, error)
	GetVideoInfo(ctx context.Context, url string) (*types.VideoInfo, error)
	StartDownload(ctx context.Context, req types.DownloadRequest) (string, error)
	GetStatus(ctx context.Context, id string) (*types.HistoryEntry, error)
}

// Options configures a Client. Zero values use the package defaults.
type Options struct {
	PollInterval time.Duration
	Timeout      time.Duration
	ProgressStep int
	// SkipInfo disables the metadata fetch between validation and start.
	SkipInfo bool
	Clock    Clock
	// Notify receives events.* messages. It must not block.
	Notify func(msg any)
	// RefreshHistory is called once after every terminal transition.
	RefreshHistory func(ctx context.Context)
}

// Client owns the single download slot: it submits requests, polls the
// backend for the active job and resolves it to exactly one outcome.
type Client struct {
	backend Backend
	opts    Options
	clock   Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	job       Job
	gen       uint64
	handle    *JobHandle
	pollTimer Timer
	deadline  Timer
	polling   bool
	closed    bool
}

// NewClient creates an idle client.
func NewClient(backend Backend, opts Options) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = types.DefaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = types.DefaultJobTimeout
	}
	if opts.ProgressStep <= 0 {
		opts.ProgressStep = types.DefaultProgressStep
	}
	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		backend: backend,
		opts:    opts,
		clock:   clock,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit validates req, starts it on the backend and begins polling.
// Backend failures are returned as *EngineError and also notified.
func (c *Client) Submit(ctx context.Context, req types.DownloadRequest) (*JobHandle, error) {
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return nil, ErrEmptyURL
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.job.State.Busy() {
		c.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	if err := req.Validate(); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	c.gen++
	gen := c.gen
	c.job = Job{Request: req, State: StateValidating, Simulated: true}
	c.mu.Unlock()

	utils.Debug("lifecycle: validating %s", req.URL)

	valid, err := c.backend.ValidateURL(ctx, req.URL)
	if err != nil {
		return nil, c.abortSubmit(gen, "validate URL", err)
	}
	if !valid {
		c.resetIfCurrent(gen)
		return nil, ErrInvalidURL
	}

	title := ""
	if !c.opts.SkipInfo {
		info, err := c.backend.GetVideoInfo(ctx, req.URL)
		if err != nil {
			return nil, c.abortSubmit(gen, "get video info", err)
		}
		title = info.Title
		c.mu.Lock()
		if gen == c.gen {
			c.job.Title = title
		}
		c.mu.Unlock()
	}

	id, err := c.backend.StartDownload(ctx, req)
	if err != nil {
		return nil, c.abortSubmit(gen, "start download", err)
	}

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.job.ID = id
	c.job.State = StateRunning
	c.job.Progress = 0
	c.job.StartedAt = c.clock.Now()
	c.handle = newHandle(id, title)
	c.pollTimer = c.clock.AfterFunc(c.opts.PollInterval, func() { c.onPollTimer(gen) })
	c.deadline = c.clock.AfterFunc(c.opts.Timeout, func() { c.onDeadline(gen) })
	handle := c.handle
	c.mu.Unlock()

	utils.Debug("lifecycle: job %s running (%s)", id, title)
	c.notify(events.JobStartedMsg{JobID: id, URL: req.URL, Title: title, Format: req.Format, Quality: req.Quality})
	c.notify(events.ProgressMsg{JobID: id, Progress: 0, Simulated: true, Status: types.StatusPending})
	return handle, nil
}

// abortSubmit returns the slot to Idle and reports a backend failure.
func (c *Client) abortSubmit(gen uint64, op string, err error) error {
	if closed := c.resetIfCurrent(gen); closed {
		return ErrClosed
	}
	engineErr := &EngineError{Op: op, Err: err}
	utils.Debug("lifecycle: %v", engineErr)
	c.notify(events.JobErrorMsg{Err: engineErr})
	return engineErr
}

// resetIfCurrent frees a slot still validating for gen and reports whether
// the client has been closed.
func (c *Client) resetIfCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen && c.job.State == StateValidating {
		c.job = Job{}
	}
	return c.closed
}

// PollOnce performs one status lookup for the running job.
func (c *Client) PollOnce(ctx context.Context) PollOutcome {
	c.mu.Lock()
	if c.job.State != StateRunning || c.polling {
		c.mu.Unlock()
		return PollSkipped
	}
	c.polling = true
	gen := c.gen
	id := c.job.ID
	c.mu.Unlock()

	entry, err := c.backend.GetStatus(ctx, id)

	c.mu.Lock()
	c.polling = false
	if gen != c.gen || c.job.State != StateRunning {
		c.mu.Unlock()
		utils.Debug("lifecycle: discarding late poll result for %s", id)
		return PollDiscarded
	}

	if err != nil {
		c.mu.Unlock()
		utils.Debug("lifecycle: status lookup for %s failed: %v", id, err)
		return PollUnchanged
	}
	if entry == nil {
		c.mu.Unlock()
		return PollUnchanged
	}

	switch entry.Status {
	case types.StatusCompleted:
		if c.job.Title == "" {
			c.job.Title = entry.Title
		}
		job := c.finishLocked(StateCompleted, types.ProgressComplete)
		c.mu.Unlock()

		c.notify(events.ProgressMsg{JobID: id, Progress: types.ProgressComplete, Simulated: true, Status: entry.Status})
		c.notify(events.JobCompleteMsg{JobID: id, Title: job.Title, Elapsed: c.clock.Now().Sub(job.StartedAt)})
		c.refreshHistory()
		return PollCompleted

	case types.StatusFailed, types.StatusCancelled:
		job := c.finishLocked(StateFailed, 0)
		c.mu.Unlock()

		c.notify(events.ProgressMsg{JobID: id, Progress: 0, Simulated: true, Status: entry.Status})
		c.notify(events.JobErrorMsg{JobID: id, Title: job.Title, Err: fmt.Errorf("download %s", strings.ToLower(string(entry.Status)))})
		c.refreshHistory()
		return PollFailed

	case types.StatusDownloading:
		next := c.job.Progress + c.opts.ProgressStep
		if next > types.SimulatedProgressCap {
			next = types.SimulatedProgressCap
		}
		c.job.Progress = next
		c.mu.Unlock()

		c.notify(events.ProgressMsg{JobID: id, Progress: next, Simulated: true, Status: entry.Status})
		return PollProgressed

	default:
		c.mu.Unlock()
		return PollUnchanged
	}
}

func (c *Client) onPollTimer(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.job.State != StateRunning || c.closed {
		c.mu.Unlock()
		return
	}
	c.pollTimer = nil
	c.mu.Unlock()

	c.PollOnce(c.ctx)

	// Re-arm only after the previous lookup returned so polls never overlap.
	c.mu.Lock()
	if gen == c.gen && c.job.State == StateRunning && !c.closed && c.pollTimer == nil {
		c.pollTimer = c.clock.AfterFunc(c.opts.PollInterval, func() { c.onPollTimer(gen) })
	}
	c.mu.Unlock()
}

func (c *Client) onDeadline(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.job.State != StateRunning {
		c.mu.Unlock()
		return
	}
	c.deadline = nil
	job := c.finishLocked(StateTimedOut, 0)
	c.mu.Unlock()

	utils.Debug("lifecycle: job %s timed out", job.ID)
	c.notify(events.ProgressMsg{JobID: job.ID, Progress: 0, Simulated: true})
	c.notify(events.JobTimedOutMsg{JobID: job.ID, Elapsed: c.clock.Now().Sub(job.StartedAt)})
	c.refreshHistory()
}

// Abandon stops observing the running job. It has the same effects as a
// timeout and reports whether a job was running.
func (c *Client) Abandon() bool {
	c.mu.Lock()
	if c.job.State != StateRunning {
		c.mu.Unlock()
		return false
	}
	c.job.Abandoned = true
	job := c.finishLocked(StateTimedOut, 0)
	c.mu.Unlock()

	utils.Debug("lifecycle: job %s abandoned", job.ID)
	c.notify(events.ProgressMsg{JobID: job.ID, Progress: 0, Simulated: true})
	c.notify(events.JobTimedOutMsg{JobID: job.ID, Elapsed: c.clock.Now().Sub(job.StartedAt), Abandoned: true})
	c.refreshHistory()
	return true
}

// finishLocked moves the running job to a terminal state, stops both
// timers and releases waiters. c.mu must be held.
func (c *Client) finishLocked(state JobState, progress int) Job {
	c.stopTimersLocked()
	c.job.State = state
	c.job.Progress = progress
	if c.handle != nil {
		c.handle.result = c.job
		close(c.handle.done)
		c.handle = nil
	}
	return c.job
}

func (c *Client) stopTimersLocked() {
	if c.pollTimer != nil {
		c.pollTimer.Stop()
		c.pollTimer = nil
	}
	if c.deadline != nil {
		c.deadline.Stop()
		c.deadline = nil
	}
}

// Acknowledge returns a terminal slot to Idle. It reports whether the
// state changed.
func (c *Client) Acknowledge() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.job.State.Terminal() {
		return false
	}
	c.job = Job{}
	return true
}

// Snapshot returns a copy of the current slot.
func (c *Client) Snapshot() Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.job
}

// Busy reports whether a job is validating or running.
func (c *Client) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.job.State.Busy()
}

// Close stops all timers. The backend job, if any, is left running.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimersLocked()
	if c.handle != nil {
		c.handle.result = c.job
		close(c.handle.done)
		c.handle = nil
	}
	c.mu.Unlock()
	c.cancel()
}

func (c *Client) notify(msg any) {
	if c.opts.Notify != nil {
		c.opts.Notify(msg)
	}
}

func (c *Client) refreshHistory() {
	if c.opts.RefreshHistory != nil {
		c.opts.RefreshHistory(c.ctx)
	}
}
