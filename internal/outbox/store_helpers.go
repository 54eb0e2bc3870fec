package outbox

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const itemColumns = "id, path, digest, user_id, start_time, end_time, status, attempts, next_attempt_at, last_error, created_at, updated_at"

// timeLayout is fixed width so stored timestamps order lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		item       Item
		statusStr  string
		startRaw   string
		endRaw     string
		nextRaw    string
		lastError  sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&item.ID,
		&item.Path,
		&item.Digest,
		&item.UserID,
		&startRaw,
		&endRaw,
		&statusStr,
		&item.Attempts,
		&nextRaw,
		&lastError,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	item.Status = Status(statusStr)
	item.LastError = lastError.String
	for _, field := range []struct {
		raw  string
		dest *time.Time
	}{
		{startRaw, &item.StartTime},
		{endRaw, &item.EndTime},
		{nextRaw, &item.NextAttemptAt},
		{createdRaw, &item.CreatedAt},
		{updatedRaw, &item.UpdatedAt},
	} {
		if parsed, err := parseTimeString(field.raw); err == nil {
			*field.dest = parsed
		}
	}
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
