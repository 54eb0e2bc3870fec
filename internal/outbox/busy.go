package outbox

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	sqlite3 "modernc.org/sqlite/lib"
)

// retryPolicy bounds how long a statement keeps retrying while another
// connection (usually the CLI's status call) holds the write lock.
type retryPolicy struct {
	attempts int
	first    time.Duration
	ceiling  time.Duration
}

var lockRetry = retryPolicy{attempts: 5, first: 10 * time.Millisecond, ceiling: 200 * time.Millisecond}

// run calls op until it succeeds, fails with something other than a lock
// error, or the attempts run out. The last error is returned unchanged.
func (p retryPolicy) run(ctx context.Context, op func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	wait := p.first
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil || !isLocked(err) || attempt >= p.attempts {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait = min(2*wait, p.ceiling)
	}
}

// isLocked matches SQLITE_BUSY and its extended codes.
func isLocked(err error) bool {
	if err == nil {
		return false
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()&0xff == sqlite3.SQLITE_BUSY
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := lockRetry.run(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.db.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// inTx runs fn in a transaction, restarting the whole transaction when the
// database is locked. fn must be safe to repeat.
func (s *Store) inTx(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	return lockRetry.run(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}
