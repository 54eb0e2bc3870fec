package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files matching the targets whose modification time
// is older than retentionDays and returns how many were removed. A
// retentionDays value of 0 disables pruning. Despite the name it is also used
// for screenshot retention.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	return cleanupBefore(logger, time.Now().AddDate(0, 0, -retentionDays), targets...)
}

func cleanupBefore(logger *slog.Logger, cutoff time.Time, targets ...RetentionTarget) int {
	excluded := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			if abs, err := filepath.Abs(strings.TrimSpace(path)); err == nil && strings.TrimSpace(path) != "" {
				excluded[abs] = struct{}{}
			}
		}
	}

	removed := 0
	for _, target := range targets {
		dir := strings.TrimSpace(target.Dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		pattern := strings.TrimSpace(target.Pattern)
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if pattern != "" {
				if matched, err := filepath.Match(pattern, name); err != nil || !matched {
					continue
				}
			}
			path := filepath.Join(dir, name)
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			if _, skip := excluded[path]; skip {
				continue
			}
			info, err := entry.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil {
				WarnWithContext(logger, "retention remove failed; file remains", "retention_remove_failed",
					String("path", path),
					Error(err),
					String(FieldErrorHint, "check file permissions and directory ownership"),
					String(FieldImpact, "old file remains on disk"),
				)
				continue
			}
			removed++
			if logger != nil {
				logger.Debug("file pruned",
					String("path", path),
					String(FieldEventType, "file_pruned"),
				)
			}
		}
	}
	return removed
}
