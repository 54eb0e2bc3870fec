package outbox

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type codedErr int

func (e codedErr) Error() string { return fmt.Sprintf("sqlite code %d", int(e)) }
func (e codedErr) Code() int     { return int(e) }

var quickRetry = retryPolicy{attempts: 3, first: time.Millisecond, ceiling: 2 * time.Millisecond}

func TestIsLocked(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{codedErr(5), true},
		{fmt.Errorf("enqueue: %w", codedErr(517)), true}, // SQLITE_BUSY_SNAPSHOT
		{codedErr(6), false},
		{codedErr(19), false},
		{errors.New("database is locked"), true},
		{errors.New("no such table: outbox_items"), false},
	}
	for _, tc := range tests {
		if got := isLocked(tc.err); got != tc.want {
			t.Errorf("isLocked(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestRetryPolicyRetriesLockedUntilSuccess(t *testing.T) {
	calls := 0
	err := quickRetry.run(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return codedErr(5)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryPolicyGivesUp(t *testing.T) {
	calls := 0
	err := quickRetry.run(context.Background(), func(context.Context) error {
		calls++
		return codedErr(5)
	})
	if !isLocked(err) {
		t.Fatalf("expected the last lock error, got %v", err)
	}
	if calls != quickRetry.attempts {
		t.Fatalf("expected %d calls, got %d", quickRetry.attempts, calls)
	}

	calls = 0
	other := errors.New("constraint failed")
	err = quickRetry.run(context.Background(), func(context.Context) error {
		calls++
		return other
	})
	if !errors.Is(err, other) || calls != 1 {
		t.Fatalf("expected a single call returning %v, got %d calls and %v", other, calls, err)
	}
}

func TestRetryPolicyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	slow := retryPolicy{attempts: 5, first: time.Hour, ceiling: time.Hour}
	calls := 0
	err := slow.run(ctx, func(context.Context) error {
		calls++
		cancel()
		return codedErr(5)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
