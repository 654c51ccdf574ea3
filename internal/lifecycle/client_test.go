package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/surge-downloader/tubepanel/internal/engine/events"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/testutil"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeBackend struct {
	mu sync.Mutex

	validateErr error
	infoErr     error
	startErr    error
	// statuses is consumed one per GetStatus call; the last one repeats.
	statuses    []*types.HistoryEntry
	statusErr   error

	// When set, GetStatus signals entered and waits for release.
	entered chan struct{}
	release chan struct{}

	validateCalls int
	infoCalls     int
	startCalls    int
	statusCalls   int
	inFlight      int
	maxInFlight   int
}

func (f *fakeBackend) ValidateURL(_ context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validateCalls++
	if f.validateErr != nil {
		return false, f.validateErr
	}
	return strings.Contains(url, "youtube.com/watch") || strings.Contains(url, "youtu.be/"), nil
}

func (f *fakeBackend) GetVideoInfo(_ context.Context, url string) (*types.VideoInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls++
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &types.VideoInfo{ID: "vid", Title: "Test Video", URL: url}, nil
}

func (f *fakeBackend) StartDownload(_ context.Context, _ types.DownloadRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.startErr != nil {
		return "", f.startErr
	}
	return "job-1", nil
}

func (f *fakeBackend) GetStatus(_ context.Context, id string) (*types.HistoryEntry, error) {
	f.mu.Lock()
	f.statusCalls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if len(f.statuses) == 0 {
		return nil, nil
	}
	next := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return next, nil
}

func status(s types.DownloadStatus) *types.HistoryEntry {
	return &types.HistoryEntry{ID: "job-1", Title: "Test Video", Status: s}
}

type recorder struct {
	mu        sync.Mutex
	msgs      []any
	refreshes int
}

func (r *recorder) notify(msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) refresh(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
}

func (r *recorder) progress() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for _, m := range r.msgs {
		if p, ok := m.(events.ProgressMsg); ok {
			out = append(out, p.Progress)
		}
	}
	return out
}

func (r *recorder) count(kind any) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := reflect.TypeOf(kind)
	n := 0
	for _, m := range r.msgs {
		if reflect.TypeOf(m) == want {
			n++
		}
	}
	return n
}

func (r *recorder) refreshCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshes
}

type harness struct {
	client  *Client
	backend *fakeBackend
	clock   *testutil.FakeClock
	rec     *recorder
}

func newHarness(t *testing.T, backend *fakeBackend, mutate ...func(*Options)) *harness {
	t.Helper()
	clock := testutil.NewFakeClock()
	rec := &recorder{}
	opts := Options{
		Clock:          clock,
		Notify:         rec.notify,
		RefreshHistory: rec.refresh,
	}
	for _, m := range mutate {
		m(&opts)
	}
	c := NewClient(backend, opts)
	t.Cleanup(c.Close)
	return &harness{client: c, backend: backend, clock: clock, rec: rec}
}

func validReq() types.DownloadRequest {
	return types.DownloadRequest{
		URL:        "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Format:     types.FormatMP3,
		Quality:    types.QualityHigh,
		OutputPath: "/tmp/out",
	}
}

func (h *harness) submit(t *testing.T) *JobHandle {
	t.Helper()
	handle, err := h.client.Submit(context.Background(), validReq())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return handle
}

// =============================================================================
// Submit
// =============================================================================

func TestSubmit_EmptyURL(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	req := validReq()
	req.URL = "   "
	_, err := h.client.Submit(context.Background(), req)

	if !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("expected ErrEmptyURL, got %v", err)
	}
	if !errors.Is(err, ErrInvalidURL) {
		t.Error("ErrEmptyURL should wrap ErrInvalidURL")
	}
	if h.backend.validateCalls != 0 {
		t.Error("engine must not be contacted for an empty URL")
	}
}

func TestSubmit_NonYouTubeURLRejectedWithoutStart(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	req := validReq()
	req.URL = "https://example.com"
	_, err := h.client.Submit(context.Background(), req)

	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
	if h.backend.startCalls != 0 {
		t.Errorf("StartDownload called %d times, want 0", h.backend.startCalls)
	}
	if h.client.Busy() {
		t.Error("slot should be free after rejection")
	}
	if got := h.client.Snapshot().State; got != StateIdle {
		t.Errorf("state = %v, want idle", got)
	}
	if h.clock.Pending() != 0 {
		t.Error("no timers should be armed")
	}
}

func TestSubmit_InvalidFormat(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	req := validReq()
	req.Format = "flac"
	_, err := h.client.Submit(context.Background(), req)

	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if h.backend.validateCalls != 0 {
		t.Error("engine must not be contacted for an invalid request")
	}
}

func TestSubmit_AlreadyRunning(t *testing.T) {
	h := newHarness(t, &fakeBackend{})
	h.submit(t)

	_, err := h.client.Submit(context.Background(), validReq())
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if h.backend.startCalls != 1 {
		t.Errorf("StartDownload called %d times, want 1", h.backend.startCalls)
	}
	snap := h.client.Snapshot()
	if snap.ID != "job-1" || snap.State != StateRunning {
		t.Errorf("existing job disturbed: %+v", snap)
	}
}

func TestSubmit_RunningJobSnapshot(t *testing.T) {
	h := newHarness(t, &fakeBackend{})
	handle := h.submit(t)

	if handle.ID != "job-1" || handle.Title != "Test Video" {
		t.Errorf("unexpected handle: %+v", handle)
	}
	snap := h.client.Snapshot()
	if snap.State != StateRunning || snap.Progress != 0 || !snap.Simulated {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if !snap.StartedAt.Equal(h.clock.Now()) {
		t.Errorf("StartedAt = %v, want %v", snap.StartedAt, h.clock.Now())
	}
	if h.rec.count(events.JobStartedMsg{}) != 1 {
		t.Error("expected one started notification")
	}
}

func TestSubmit_EngineErrors(t *testing.T) {
	boom := errors.New("backend down")
	tests := []struct {
		name       string
		backend    *fakeBackend
		op         string
		wantStarts int
	}{
		{"validate", &fakeBackend{validateErr: boom}, "validate URL", 0},
		{"info", &fakeBackend{infoErr: boom}, "get video info", 0},
		{"start", &fakeBackend{startErr: boom}, "start download", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.backend)
			_, err := h.client.Submit(context.Background(), validReq())

			var engineErr *EngineError
			if !errors.As(err, &engineErr) {
				t.Fatalf("expected *EngineError, got %v", err)
			}
			if engineErr.Op != tt.op {
				t.Errorf("Op = %q, want %q", engineErr.Op, tt.op)
			}
			if !errors.Is(err, boom) {
				t.Error("EngineError should unwrap to the backend error")
			}
			if tt.backend.startCalls != tt.wantStarts {
				t.Errorf("StartDownload calls = %d, want %d", tt.backend.startCalls, tt.wantStarts)
			}
			if h.rec.count(events.JobErrorMsg{}) != 1 {
				t.Error("expected exactly one error notification")
			}
			if h.client.Snapshot().State != StateIdle {
				t.Error("slot should return to idle")
			}
		})
	}
}

func TestSubmit_SkipInfo(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, func(o *Options) { o.SkipInfo = true })
	h.submit(t)

	if h.backend.infoCalls != 0 {
		t.Errorf("GetVideoInfo called %d times with SkipInfo", h.backend.infoCalls)
	}
}

// =============================================================================
// Polling
// =============================================================================

func TestScenario_ProgressThenComplete(t *testing.T) {
	backend := &fakeBackend{statuses: []*types.HistoryEntry{
		status(types.StatusDownloading),
		status(types.StatusDownloading),
		status(types.StatusDownloading),
		status(types.StatusCompleted),
	}}
	h := newHarness(t, backend)
	handle := h.submit(t)

	for i := 0; i < 4; i++ {
		h.clock.Advance(types.DefaultPollInterval)
	}

	want := []int{0, 10, 20, 30, 100}
	if got := h.rec.progress(); !reflect.DeepEqual(got, want) {
		t.Errorf("progress = %v, want %v", got, want)
	}
	if h.rec.refreshCount() != 1 {
		t.Errorf("history refreshed %d times, want 1", h.rec.refreshCount())
	}
	if h.client.Busy() {
		t.Error("slot should be free after completion")
	}
	if h.clock.Pending() != 0 {
		t.Errorf("%d timers still armed", h.clock.Pending())
	}

	job, err := handle.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if job.State != StateCompleted || job.Progress != 100 {
		t.Errorf("final job = %+v", job)
	}
}

func TestPoll_ProgressCapped(t *testing.T) {
	h := newHarness(t, &fakeBackend{statuses: []*types.HistoryEntry{status(types.StatusDownloading)}})
	h.submit(t)

	for i := 0; i < 15; i++ {
		h.clock.Advance(types.DefaultPollInterval)
	}

	progress := h.rec.progress()
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Fatalf("progress decreased: %v", progress)
		}
	}
	if last := progress[len(progress)-1]; last != types.SimulatedProgressCap {
		t.Errorf("last progress = %d, want %d", last, types.SimulatedProgressCap)
	}
	if h.client.Snapshot().State != StateRunning {
		t.Error("job should still be running")
	}
}

func TestPoll_FailedResetsProgress(t *testing.T) {
	for _, s := range []types.DownloadStatus{types.StatusFailed, types.StatusCancelled} {
		t.Run(string(s), func(t *testing.T) {
			h := newHarness(t, &fakeBackend{statuses: []*types.HistoryEntry{
				status(types.StatusDownloading),
				status(s),
			}})
			handle := h.submit(t)

			h.clock.Advance(types.DefaultPollInterval)
			h.clock.Advance(types.DefaultPollInterval)

			snap := h.client.Snapshot()
			if snap.State != StateFailed || snap.Progress != 0 {
				t.Errorf("snapshot = %+v", snap)
			}
			if h.rec.count(events.JobErrorMsg{}) != 1 {
				t.Errorf("error notifications = %d, want 1", h.rec.count(events.JobErrorMsg{}))
			}
			if h.rec.refreshCount() != 1 {
				t.Errorf("history refreshed %d times, want 1", h.rec.refreshCount())
			}
			if _, err := handle.Wait(context.Background()); err != nil {
				t.Errorf("Wait: %v", err)
			}
		})
	}
}

func TestPoll_NonTerminalLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
	}{
		{"pending", &fakeBackend{statuses: []*types.HistoryEntry{status(types.StatusPending)}}},
		{"missing", &fakeBackend{}},
		{"lookup error", &fakeBackend{statusErr: errors.New("timeout")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.backend)
			h.submit(t)

			if got := h.client.PollOnce(context.Background()); got != PollUnchanged {
				t.Errorf("outcome = %v, want unchanged", got)
			}
			snap := h.client.Snapshot()
			if snap.State != StateRunning || snap.Progress != 0 {
				t.Errorf("snapshot = %+v", snap)
			}
			if h.rec.count(events.JobErrorMsg{}) != 0 {
				t.Error("non-terminal poll must not notify an error")
			}
		})
	}
}

func TestPoll_SkippedWhenIdle(t *testing.T) {
	h := newHarness(t, &fakeBackend{})
	if got := h.client.PollOnce(context.Background()); got != PollSkipped {
		t.Errorf("outcome = %v, want skipped", got)
	}
	if h.backend.statusCalls != 0 {
		t.Error("idle poll must not contact the backend")
	}
}

func TestPoll_NeverOverlaps(t *testing.T) {
	backend := &fakeBackend{
		statuses: []*types.HistoryEntry{status(types.StatusDownloading)},
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	h := newHarness(t, backend, func(o *Options) { o.PollInterval = time.Hour })
	h.submit(t)

	done := make(chan PollOutcome)
	go func() { done <- h.client.PollOnce(context.Background()) }()
	<-backend.entered

	if got := h.client.PollOnce(context.Background()); got != PollSkipped {
		t.Errorf("overlapping poll outcome = %v, want skipped", got)
	}

	close(backend.release)
	if got := <-done; got != PollProgressed {
		t.Errorf("first poll outcome = %v, want progressed", got)
	}
	if backend.maxInFlight != 1 {
		t.Errorf("max concurrent lookups = %d, want 1", backend.maxInFlight)
	}
}

// =============================================================================
// Timeout and cancellation
// =============================================================================

func TestTimeout(t *testing.T) {
	h := newHarness(t, &fakeBackend{statuses: []*types.HistoryEntry{status(types.StatusDownloading)}})
	handle := h.submit(t)

	h.clock.Advance(types.DefaultJobTimeout)

	snap := h.client.Snapshot()
	if snap.State != StateTimedOut || snap.Progress != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
	if h.rec.count(events.JobTimedOutMsg{}) != 1 {
		t.Error("expected one timeout notification")
	}
	if h.rec.count(events.JobErrorMsg{}) != 0 {
		t.Error("timeout must not notify an error")
	}
	if h.rec.refreshCount() != 1 {
		t.Errorf("history refreshed %d times, want 1", h.rec.refreshCount())
	}
	if h.clock.Pending() != 0 {
		t.Errorf("%d timers still armed after timeout", h.clock.Pending())
	}
	if h.clock.StopCount() != 1 {
		t.Errorf("timer stops = %d, want 1", h.clock.StopCount())
	}

	polls := h.backend.statusCalls
	h.clock.Advance(time.Minute)
	if h.backend.statusCalls != polls {
		t.Error("polling continued after timeout")
	}

	job, err := handle.Wait(context.Background())
	if err != nil || job.State != StateTimedOut {
		t.Errorf("Wait = %+v, %v", job, err)
	}
}

func TestDeadlineAfterCompletionIsNoop(t *testing.T) {
	h := newHarness(t, &fakeBackend{statuses: []*types.HistoryEntry{status(types.StatusCompleted)}})
	h.submit(t)

	h.clock.Advance(types.DefaultPollInterval)
	if h.clock.StopCount() != 1 {
		t.Errorf("timer stops = %d, want 1", h.clock.StopCount())
	}

	h.clock.Advance(2 * types.DefaultJobTimeout)

	if h.client.Snapshot().State != StateCompleted {
		t.Errorf("state = %v, want completed", h.client.Snapshot().State)
	}
	if h.rec.count(events.JobTimedOutMsg{}) != 0 {
		t.Error("deadline fired after completion")
	}
	if h.rec.refreshCount() != 1 {
		t.Errorf("history refreshed %d times, want 1", h.rec.refreshCount())
	}
}

func TestLatePollResultDiscarded(t *testing.T) {
	backend := &fakeBackend{
		statuses: []*types.HistoryEntry{status(types.StatusCompleted)},
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	h := newHarness(t, backend, func(o *Options) { o.PollInterval = time.Hour })
	h.submit(t)

	done := make(chan PollOutcome)
	go func() { done <- h.client.PollOnce(context.Background()) }()
	<-backend.entered

	h.clock.Advance(types.DefaultJobTimeout)
	close(backend.release)

	if got := <-done; got != PollDiscarded {
		t.Errorf("late poll outcome = %v, want discarded", got)
	}
	snap := h.client.Snapshot()
	if snap.State != StateTimedOut || snap.Progress != 0 {
		t.Errorf("late result changed state: %+v", snap)
	}
	if h.rec.count(events.JobCompleteMsg{}) != 0 {
		t.Error("late result must not notify completion")
	}
	if h.rec.refreshCount() != 1 {
		t.Errorf("history refreshed %d times, want 1", h.rec.refreshCount())
	}
}

func TestAbandon(t *testing.T) {
	h := newHarness(t, &fakeBackend{statuses: []*types.HistoryEntry{status(types.StatusDownloading)}})

	if h.client.Abandon() {
		t.Error("Abandon should report false when idle")
	}

	h.submit(t)
	h.clock.Advance(types.DefaultPollInterval)

	if !h.client.Abandon() {
		t.Fatal("Abandon should report true for a running job")
	}
	snap := h.client.Snapshot()
	if snap.State != StateTimedOut || !snap.Abandoned || snap.Progress != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
	if h.rec.count(events.JobErrorMsg{}) != 0 {
		t.Error("abandon must not notify an error")
	}
	if h.clock.Pending() != 0 {
		t.Error("timers still armed after abandon")
	}
}

// =============================================================================
// Slot management
// =============================================================================

func TestAcknowledge(t *testing.T) {
	h := newHarness(t, &fakeBackend{statuses: []*types.HistoryEntry{status(types.StatusCompleted)}})
	h.submit(t)

	if h.client.Acknowledge() {
		t.Error("Acknowledge should not reset a running job")
	}

	h.clock.Advance(types.DefaultPollInterval)
	if !h.client.Acknowledge() {
		t.Fatal("Acknowledge should reset a terminal job")
	}
	if snap := h.client.Snapshot(); snap.State != StateIdle || snap.ID != "" {
		t.Errorf("snapshot after ack = %+v", snap)
	}
}

func TestSubmitAfterTerminalWithoutAcknowledge(t *testing.T) {
	h := newHarness(t, &fakeBackend{statuses: []*types.HistoryEntry{status(types.StatusFailed)}})
	h.submit(t)
	h.clock.Advance(types.DefaultPollInterval)

	if _, err := h.client.Submit(context.Background(), validReq()); err != nil {
		t.Fatalf("Submit after terminal failed: %v", err)
	}
	if h.client.Snapshot().State != StateRunning {
		t.Error("new job should be running")
	}
}

func TestClose(t *testing.T) {
	h := newHarness(t, &fakeBackend{statuses: []*types.HistoryEntry{status(types.StatusDownloading)}})
	handle := h.submit(t)

	h.client.Close()
	h.client.Close()

	if h.clock.Pending() != 0 {
		t.Errorf("%d timers still armed after Close", h.clock.Pending())
	}
	if _, err := handle.Wait(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Wait after Close = %v, want ErrClosed", err)
	}
	if _, err := h.client.Submit(context.Background(), validReq()); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit after Close = %v, want ErrClosed", err)
	}
}

func TestRealClock_Completes(t *testing.T) {
	backend := &fakeBackend{statuses: []*types.HistoryEntry{
		status(types.StatusDownloading),
		status(types.StatusCompleted),
	}}
	c := NewClient(backend, Options{PollInterval: 10 * time.Millisecond, Timeout: 5 * time.Second})
	defer c.Close()

	handle, err := c.Submit(context.Background(), validReq())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	job, err := handle.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if job.State != StateCompleted || job.Progress != 100 {
		t.Errorf("final job = %+v", job)
	}
}

func TestJobStateStrings(t *testing.T) {
	states := map[JobState]string{
		StateIdle:       "idle",
		StateValidating: "validating",
		StateRunning:    "running",
		StateCompleted:  "completed",
		StateFailed:     "failed",
		StateTimedOut:   "timed out",
	}
	for s, want := range states {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
	if !StateRunning.Busy() || StateCompleted.Busy() {
		t.Error("Busy misreports")
	}
	if !PollCompleted.Terminal() || PollDiscarded.Terminal() {
		t.Error("PollOutcome.Terminal misreports")
	}
}
