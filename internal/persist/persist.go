package persist

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"shotclock/internal/capture"
	"shotclock/internal/config"
	"shotclock/internal/logging"
	"shotclock/internal/services"
)

const (
	filePrefix   = "screenshot-"
	fileExt      = ".png"
	stampLayout  = "2006-01-02T15-04-05.000Z"
	filePattern  = filePrefix + "*" + fileExt
	maxCollision = 1000
)

// Persister writes samples into the screenshot directory.
type Persister struct {
	dir    string
	logger *slog.Logger
}

// New constructs a Persister rooted at paths.screenshot_dir.
func New(cfg *config.Config, logger *slog.Logger) *Persister {
	return &Persister{
		dir:    cfg.Paths.ScreenshotDir,
		logger: logging.NewComponentLogger(logger, "persist"),
	}
}

// Dir returns the screenshot directory.
func (p *Persister) Dir() string {
	return p.dir
}

// FileName returns the screenshot name for t. A positive n adds the
// collision suffix.
func FileName(t time.Time, n int) string {
	name := filePrefix + t.UTC().Format(stampLayout)
	if n > 0 {
		name += "-" + strconv.Itoa(n)
	}
	return name + fileExt
}

// Persist writes the sample and returns its path. Existing files are never
// overwritten. Any failure is tagged services.ErrPersist.
func (p *Persister) Persist(sample capture.Sample) (string, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrPersist, "persist", "mkdir", p.dir, err)
	}
	at := sample.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}

	for n := 0; n < maxCollision; n++ {
		path := filepath.Join(p.dir, FileName(at, n))
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", services.Wrap(services.ErrPersist, "persist", "create", path, err)
		}
		if err := writeAndClose(file, sample.Image); err != nil {
			_ = os.Remove(path)
			return "", services.Wrap(services.ErrPersist, "persist", "write", path, err)
		}
		p.logger.Debug("sample saved",
			logging.String("path", path),
			logging.Int("bytes", len(sample.Image)),
			logging.String(logging.FieldEventType, "sample_saved"),
		)
		return path, nil
	}
	return "", services.Wrap(services.ErrPersist, "persist", "create",
		fmt.Sprintf("%d files already exist for %s", maxCollision, at.UTC().Format(stampLayout)), nil)
}

func writeAndClose(file *os.File, data []byte) error {
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Prune removes screenshots older than retentionDays, skipping exclude.
// A retentionDays of 0 keeps everything.
func (p *Persister) Prune(retentionDays int, exclude ...string) int {
	removed := logging.CleanupOldLogs(p.logger, retentionDays, logging.RetentionTarget{
		Dir:     p.dir,
		Pattern: filePattern,
		Exclude: exclude,
	})
	if removed > 0 {
		p.logger.Info("old screenshots pruned",
			logging.Int("removed", removed),
			logging.Int("retention_days", retentionDays),
			logging.String(logging.FieldEventType, "screenshots_pruned"),
		)
	}
	return removed
}
