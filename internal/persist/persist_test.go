package persist_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shotclock/internal/capture"
	"shotclock/internal/persist"
	"shotclock/internal/services"
	"shotclock/internal/testsupport"
)

func TestFileName(t *testing.T) {
	at := time.Date(2026, 10, 14, 9, 30, 5, 123_000_000, time.FixedZone("CEST", 2*3600))
	if got := persist.FileName(at, 0); got != "screenshot-2026-10-14T07-30-05.123Z.png" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := persist.FileName(at, 2); got != "screenshot-2026-10-14T07-30-05.123Z-2.png" {
		t.Fatalf("unexpected disambiguated name %q", got)
	}
}

func TestPersistDistinctPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := persist.New(cfg, nil)
	img := testsupport.PNG(t)
	at := time.Date(2026, 10, 14, 9, 30, 5, 0, time.UTC)

	first, err := p.Persist(capture.Sample{Image: img, CapturedAt: at})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	second, err := p.Persist(capture.Sample{Image: img, CapturedAt: at.Add(time.Second)})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	same, err := p.Persist(capture.Sample{Image: []byte("other"), CapturedAt: at})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	if first == second || first == same || second == same {
		t.Fatalf("expected distinct paths, got %q %q %q", first, second, same)
	}
	if filepath.Base(same) != "screenshot-2026-10-14T09-30-05.000Z-1.png" {
		t.Fatalf("unexpected collision name %q", same)
	}
	if filepath.Dir(first) != cfg.Paths.ScreenshotDir {
		t.Fatalf("expected file under screenshot dir, got %q", first)
	}
	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != string(img) {
		t.Fatal("first file was overwritten")
	}
}

func TestPersistReportsPersistError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blocker := filepath.Join(testsupport.BaseDir(cfg), "blocker")
	if err := os.WriteFile(blocker, []byte("file"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Paths.ScreenshotDir = filepath.Join(blocker, "shots")

	_, err := persist.New(cfg, nil).Persist(capture.Sample{Image: []byte("x")})
	if !errors.Is(err, services.ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
}

func TestPruneHonoursRetentionAndExclusions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := persist.New(cfg, nil)
	img := testsupport.PNG(t)
	old, err := p.Persist(capture.Sample{Image: img, CapturedAt: time.Now().AddDate(0, 0, -30)})
	if err != nil {
		t.Fatal(err)
	}
	pending, err := p.Persist(capture.Sample{Image: img, CapturedAt: time.Now().AddDate(0, 0, -31)})
	if err != nil {
		t.Fatal(err)
	}
	recent, err := p.Persist(capture.Sample{Image: img, CapturedAt: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	past := time.Now().AddDate(0, 0, -30)
	for _, path := range []string{old, pending} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatal(err)
		}
	}

	if removed := p.Prune(0); removed != 0 {
		t.Fatalf("retention 0 must keep everything, removed %d", removed)
	}
	if removed := p.Prune(7, pending); removed != 1 {
		t.Fatalf("expected one file pruned, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected old screenshot removed")
	}
	for _, path := range []string{pending, recent} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}
