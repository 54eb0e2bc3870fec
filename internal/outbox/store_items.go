package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shotclock/internal/services"
)

// Enqueue records a locally saved sample for later delivery. The item is due
// immediately.
func (s *Store) Enqueue(ctx context.Context, entry Entry) (*Item, error) {
	if strings.TrimSpace(entry.Path) == "" || strings.TrimSpace(entry.Digest) == "" {
		return nil, services.Wrap(services.ErrValidation, "outbox", "enqueue", "path and digest are required", nil)
	}
	timestamp := formatTime(s.now())

	res, err := s.exec(
		ctx,
		`INSERT INTO outbox_items (
            path, digest, user_id, start_time, end_time, status,
            attempts, next_attempt_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		entry.Path,
		entry.Digest,
		entry.UserID,
		formatTime(entry.StartTime),
		formatTime(entry.EndTime),
		StatusPending,
		timestamp,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert outbox item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches an item by identifier. A missing item yields nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM outbox_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get outbox item: %w", err)
	}
	return item, nil
}

// Due returns pending items whose next attempt is at or before now, oldest
// schedule first.
func (s *Store) Due(ctx context.Context, now time.Time, limit int) ([]*Item, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM outbox_items
        WHERE status = ? AND next_attempt_at <= ?
        ORDER BY next_attempt_at, id LIMIT ?`,
		StatusPending,
		formatTime(now),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query due items: %w", err)
	}
	return scanItems(rows)
}

// List returns items filtered by status. With no statuses every item is
// returned.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM outbox_items`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outbox items: %w", err)
	}
	return scanItems(rows)
}

// PendingPaths returns the files of every item not yet delivered. Retention
// excludes these so a queued sample is never pruned.
func (s *Store) PendingPaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM outbox_items WHERE status != ? ORDER BY id`, StatusDelivered)
	if err != nil {
		return nil, fmt.Errorf("query pending paths: %w", err)
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// MarkDelivered records a successful upload.
func (s *Store) MarkDelivered(ctx context.Context, id int64) error {
	res, err := s.exec(
		ctx,
		`UPDATE outbox_items SET status = ?, attempts = attempts + 1, last_error = NULL, updated_at = ? WHERE id = ?`,
		StatusDelivered,
		formatTime(s.now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return requireRow(res)
}

// MarkRetry records a failed attempt and schedules the next one.
func (s *Store) MarkRetry(ctx context.Context, id int64, attempts int, next time.Time, cause string) error {
	res, err := s.exec(
		ctx,
		`UPDATE outbox_items
        SET status = ?, attempts = ?, next_attempt_at = ?, last_error = ?, updated_at = ?
        WHERE id = ?`,
		StatusPending,
		attempts,
		formatTime(next),
		nullableString(cause),
		formatTime(s.now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark retry: %w", err)
	}
	return requireRow(res)
}

// MarkFailed parks an item until an operator retries it.
func (s *Store) MarkFailed(ctx context.Context, id int64, attempts int, cause string) error {
	res, err := s.exec(
		ctx,
		`UPDATE outbox_items SET status = ?, attempts = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		StatusFailed,
		attempts,
		nullableString(cause),
		formatTime(s.now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireRow(res)
}

// RetryFailed moves failed items back to pending, resets their attempts, and
// makes them due immediately. With no ids every failed item is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := formatTime(s.now())
	query := `UPDATE outbox_items
        SET status = ?, attempts = 0, next_attempt_at = ?, last_error = NULL, updated_at = ?
        WHERE status = ?`
	args := []any{StatusPending, timestamp, timestamp, StatusFailed}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed items: %w", err)
	}
	return res.RowsAffected()
}

// PurgeDelivered removes delivered items and returns how many were removed.
func (s *Store) PurgeDelivered(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM outbox_items WHERE status = ?`, StatusDelivered)
	if err != nil {
		return 0, fmt.Errorf("purge delivered: %w", err)
	}
	return res.RowsAffected()
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrItemNotFound
	}
	return nil
}
