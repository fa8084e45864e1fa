package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"raterc/internal/modules/session/domain"
	"raterc/internal/modules/session/dto"
	"raterc/internal/platform/clock"
)

var epoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }

func (m *manualTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

func (m *manualTicker) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// manualClock is a settable clock whose tickers fire only when told to.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	created chan *manualTicker
	count   int
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now, created: make(chan *manualTicker, 8)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *manualClock) NewTicker(time.Duration) clock.Ticker {
	t := &manualTicker{ch: make(chan time.Time)}
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	c.created <- t
	return t
}

func (c *manualClock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *manualClock) nextTicker(t *testing.T) *manualTicker {
	t.Helper()
	select {
	case tk := <-c.created:
		return tk
	case <-time.After(2 * time.Second):
		t.Fatalf("no ticker created")
		return nil
	}
}

// fire delivers one tick; false means the clock goroutine is gone.
func fire(tk *manualTicker, at time.Time) bool {
	select {
	case tk.ch <- at:
		return true
	case <-time.After(200 * time.Millisecond):
		return false
	}
}

type fixedID struct{}

func (fixedID) New() string { return "run-1" }

type fetchResult struct {
	question domain.Question
	found    bool
	err      error
}

type submitCall struct {
	raterID string
	rating  domain.Rating
}

// fakeBoundary answers from queues. A fetch with hold set blocks until
// hold is closed.
type fakeBoundary struct {
	mu        sync.Mutex
	session   domain.Session
	startErr  error
	fetches   []fetchResult
	submits   []submitCall
	submitErr error
	reject    bool
	fetchN    int
	startN    int
	hold      chan struct{}
}

func (f *fakeBoundary) Start(context.Context, domain.LaunchParams) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startN++
	if f.startErr != nil {
		return domain.Session{}, f.startErr
	}
	return f.session, nil
}

func (f *fakeBoundary) NextQuestion(ctx context.Context, _ string) (domain.Question, bool, error) {
	f.mu.Lock()
	hold := f.hold
	f.fetchN++
	f.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return domain.Question{}, false, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.fetches) == 0 {
		return domain.Question{}, false, nil
	}
	next := f.fetches[0]
	f.fetches = f.fetches[1:]
	return next.question, next.found, next.err
}

func (f *fakeBoundary) Submit(_ context.Context, raterID string, rating domain.Rating) (domain.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, submitCall{raterID: raterID, rating: rating})
	if f.submitErr != nil {
		return domain.Ack{}, f.submitErr
	}
	return domain.Ack{Accepted: !f.reject, SubmissionID: "s"}, nil
}

func (f *fakeBoundary) Status(context.Context, string) (domain.Status, error) {
	return domain.Status{Active: true, RemainingSeconds: 120, QuestionsCompleted: 2}, nil
}

func (f *fakeBoundary) End(context.Context, string) (string, error) {
	return "Session ended", nil
}

func (f *fakeBoundary) counts() (starts, fetches, submits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startN, f.fetchN, len(f.submits)
}

type fakeJournal struct {
	mu       sync.Mutex
	starts   []domain.RunRecord
	ratings  []domain.Rating
	outcomes []domain.RunRecord
}

func (f *fakeJournal) RecordStart(_ context.Context, run domain.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, run)
	return nil
}

func (f *fakeJournal) RecordRating(_ context.Context, _ string, rating domain.Rating, _ domain.Ack, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratings = append(f.ratings, rating)
	return nil
}

func (f *fakeJournal) RecordOutcome(_ context.Context, run domain.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, run)
	return nil
}

func (f *fakeJournal) List(context.Context, int) ([]domain.RunRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.RunRecord(nil), f.outcomes...), nil
}

func (f *fakeJournal) outcomeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.outcomes)
}

type snapshotter interface {
	Snapshot() dto.Snapshot
}

func waitFor(t *testing.T, run snapshotter, what string, cond func(dto.Snapshot) bool) dto.Snapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snap := run.Snapshot()
		if cond(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s, last snapshot %+v", what, run.Snapshot())
	return dto.Snapshot{}
}
