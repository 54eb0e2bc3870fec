package agent_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"shotclock/internal/agent"
	"shotclock/internal/capture"
	"shotclock/internal/outbox"
	"shotclock/internal/upload"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(d time.Duration) agent.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{clock: c, c: make(chan time.Time, 1), period: d, next: c.now.Add(d)}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves time forward and fires every live ticker whose deadline has
// passed. Like time.Ticker, a full channel drops the tick.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, t := range c.tickers {
		if t.stopped {
			continue
		}
		for !t.next.After(c.now) {
			select {
			case t.c <- t.next:
			default:
			}
			t.next = t.next.Add(t.period)
		}
	}
}

type fakeTicker struct {
	clock   *fakeClock
	c       chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	t.stopped = true
	t.clock.mu.Unlock()
}

type stubCapturer struct {
	clock *fakeClock
	image []byte
	err   error
	calls chan time.Time
	// block, when set, holds each capture until it receives or ctx ends.
	block chan struct{}
}

func newStubCapturer(clock *fakeClock, image []byte) *stubCapturer {
	return &stubCapturer{clock: clock, image: image, calls: make(chan time.Time, 16)}
}

func (s *stubCapturer) Capture(ctx context.Context) (capture.Sample, error) {
	now := s.clock.Now()
	s.calls <- now
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return capture.Sample{}, ctx.Err()
		}
	}
	if s.err != nil {
		return capture.Sample{}, s.err
	}
	return capture.Sample{Image: s.image, CapturedAt: now, Display: capture.DefaultDisplay}, nil
}

type stubUploader struct {
	mu   sync.Mutex
	err  error
	reqs []upload.Request
}

func (s *stubUploader) Upload(_ context.Context, req upload.Request) (*upload.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return &upload.Response{StatusCode: 202}, nil
}

func (s *stubUploader) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs)
}

type stubPersister struct {
	err error
}

func (s *stubPersister) Persist(capture.Sample) (string, error) {
	return "", s.err
}

type stubEnqueuer struct {
	mu      sync.Mutex
	entries []outbox.Entry
}

func (s *stubEnqueuer) Enqueue(_ context.Context, entry outbox.Entry) (*outbox.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return &outbox.Item{ID: int64(len(s.entries)), Path: entry.Path}, nil
}

func (s *stubEnqueuer) Entries() []outbox.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Entry(nil), s.entries...)
}

type stubPairingClient struct {
	userID string
	err    error
	codes  []string
}

func (s *stubPairingClient) Pair(_ context.Context, code, _ string) (string, error) {
	s.codes = append(s.codes, code)
	return s.userID, s.err
}

func waitForCapture(t *testing.T, calls <-chan time.Time) time.Time {
	t.Helper()
	select {
	case at := <-calls:
		return at
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for capture")
		return time.Time{}
	}
}

func expectNoCapture(t *testing.T, calls <-chan time.Time) {
	t.Helper()
	select {
	case at := <-calls:
		t.Fatalf("unexpected capture at %v", at)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
