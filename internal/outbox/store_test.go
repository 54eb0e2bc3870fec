package outbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shotclock/internal/outbox"
	"shotclock/internal/testsupport"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)}
}

func entry(path string) outbox.Entry {
	start := time.Date(2026, 10, 14, 9, 25, 0, 0, time.UTC)
	return outbox.Entry{
		Path:      path,
		Digest:    outbox.Digest([]byte(path)),
		UserID:    "user-1",
		StartTime: start,
		EndTime:   start.Add(5 * time.Minute),
	}
}

func TestEnqueueRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	clock := newClock()
	store := testsupport.MustOpenOutbox(t, cfg, outbox.WithClock(clock.Now))
	ctx := context.Background()

	item, err := store.Enqueue(ctx, entry("/tmp/a.png"))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if item.ID == 0 || item.Status != outbox.StatusPending || item.Attempts != 0 {
		t.Fatalf("unexpected item: %#v", item)
	}
	if !item.NextAttemptAt.Equal(clock.now) || !item.CreatedAt.Equal(clock.now) {
		t.Fatalf("expected timestamps at %v, got next=%v created=%v", clock.now, item.NextAttemptAt, item.CreatedAt)
	}
	if item.UserID != "user-1" || !item.EndTime.Equal(item.StartTime.Add(5*time.Minute)) {
		t.Fatalf("unexpected sample fields: %#v", item)
	}

	missing, err := store.GetByID(ctx, item.ID+100)
	if err != nil || missing != nil {
		t.Fatalf("expected nil item for unknown id, got %v, %v", missing, err)
	}
}

func TestEnqueueRequiresPathAndDigest(t *testing.T) {
	store := testsupport.MustOpenOutbox(t, testsupport.NewConfig(t))
	if _, err := store.Enqueue(context.Background(), outbox.Entry{Path: "/tmp/a.png"}); err == nil {
		t.Fatal("expected error without digest")
	}
	if _, err := store.Enqueue(context.Background(), outbox.Entry{Digest: "abc"}); err == nil {
		t.Fatal("expected error without path")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := testsupport.MustOpenOutbox(t, cfg)
	if _, err := first.Enqueue(context.Background(), entry("/tmp/keep.png")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := testsupport.MustOpenOutbox(t, cfg)
	items, err := second.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 || items[0].Path != "/tmp/keep.png" {
		t.Fatalf("expected item to survive reopen, got %#v", items)
	}
}

func TestDueHonorsScheduleAndOrder(t *testing.T) {
	clock := newClock()
	store := testsupport.MustOpenOutbox(t, testsupport.NewConfig(t), outbox.WithClock(clock.Now))
	ctx := context.Background()

	a, _ := store.Enqueue(ctx, entry("/tmp/a.png"))
	clock.Advance(time.Second)
	b, _ := store.Enqueue(ctx, entry("/tmp/b.png"))
	clock.Advance(time.Second)
	c, _ := store.Enqueue(ctx, entry("/tmp/c.png"))

	if err := store.MarkRetry(ctx, a.ID, 1, clock.now.Add(time.Minute), "boom"); err != nil {
		t.Fatalf("MarkRetry failed: %v", err)
	}

	due, err := store.Due(ctx, clock.now, 10)
	if err != nil {
		t.Fatalf("Due failed: %v", err)
	}
	if len(due) != 2 || due[0].ID != b.ID || due[1].ID != c.ID {
		t.Fatalf("expected b then c, got %#v", due)
	}

	limited, _ := store.Due(ctx, clock.now, 1)
	if len(limited) != 1 || limited[0].ID != b.ID {
		t.Fatalf("expected limit to return oldest, got %#v", limited)
	}

	later, _ := store.Due(ctx, clock.now.Add(2*time.Minute), 10)
	if len(later) != 3 || later[2].ID != a.ID {
		t.Fatalf("expected rescheduled item last once due, got %#v", later)
	}
	if later[2].Attempts != 1 || later[2].LastError != "boom" {
		t.Fatalf("expected retry bookkeeping, got %#v", later[2])
	}
}

func TestTransitionsAndMaintenance(t *testing.T) {
	clock := newClock()
	store := testsupport.MustOpenOutbox(t, testsupport.NewConfig(t), outbox.WithClock(clock.Now))
	ctx := context.Background()

	delivered, _ := store.Enqueue(ctx, entry("/tmp/delivered.png"))
	failed, _ := store.Enqueue(ctx, entry("/tmp/failed.png"))
	pending, _ := store.Enqueue(ctx, entry("/tmp/pending.png"))

	if err := store.MarkDelivered(ctx, delivered.ID); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	if err := store.MarkFailed(ctx, failed.ID, 8, "gave up"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	if err := store.MarkDelivered(ctx, 9999); !errors.Is(err, outbox.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[outbox.StatusDelivered] != 1 || stats[outbox.StatusFailed] != 1 || stats[outbox.StatusPending] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	paths, err := store.PendingPaths(ctx)
	if err != nil {
		t.Fatalf("PendingPaths failed: %v", err)
	}
	if len(paths) != 2 || paths[0] != failed.Path || paths[1] != pending.Path {
		t.Fatalf("unexpected pending paths: %v", paths)
	}

	onlyFailed, _ := store.List(ctx, outbox.StatusFailed)
	if len(onlyFailed) != 1 || onlyFailed[0].Attempts != 8 || onlyFailed[0].LastError != "gave up" {
		t.Fatalf("unexpected failed list: %#v", onlyFailed)
	}

	clock.Advance(time.Hour)
	retried, err := store.RetryFailed(ctx)
	if err != nil || retried != 1 {
		t.Fatalf("RetryFailed = %d, %v", retried, err)
	}
	item, _ := store.GetByID(ctx, failed.ID)
	if item.Status != outbox.StatusPending || item.Attempts != 0 || item.LastError != "" || !item.NextAttemptAt.Equal(clock.now) {
		t.Fatalf("expected reset item, got %#v", item)
	}
	if n, _ := store.RetryFailed(ctx, pending.ID); n != 0 {
		t.Fatalf("expected pending item untouched by retry, got %d", n)
	}

	purged, err := store.PurgeDelivered(ctx)
	if err != nil || purged != 1 {
		t.Fatalf("PurgeDelivered = %d, %v", purged, err)
	}
	all, _ := store.List(ctx)
	if len(all) != 2 {
		t.Fatalf("expected 2 items after purge, got %d", len(all))
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenOutbox(t, cfg)
	if _, err := store.Enqueue(context.Background(), entry("/tmp/a.png")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if health.DBPath != cfg.OutboxPath() || !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health: %#v", health)
	}
	if health.TotalItems != 1 || !health.IntegrityCheck {
		t.Fatalf("unexpected health counts: %#v", health)
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := outbox.ParseStatus("failed"); !ok || s != outbox.StatusFailed {
		t.Fatalf("ParseStatus(failed) = %q, %v", s, ok)
	}
	if _, ok := outbox.ParseStatus("bogus"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
