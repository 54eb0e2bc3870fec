package identity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEnsureGeneratesOnceAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "identity.json")
	fixed := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	store := NewStore(path,
		WithClock(func() time.Time { return fixed }),
		WithHostname(func() (string, error) { return "Work-Laptop.local", nil }),
	)

	first, err := store.Ensure()
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !strings.HasPrefix(first.DeviceID, "work-laptop-") {
		t.Fatalf("unexpected device id %q", first.DeviceID)
	}
	if !first.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected created_at %v", first.CreatedAt)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat identity: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	second, err := NewStore(path).Ensure()
	if err != nil {
		t.Fatalf("Ensure reload: %v", err)
	}
	if second.DeviceID != first.DeviceID {
		t.Fatalf("device id changed across reload: %q vs %q", first.DeviceID, second.DeviceID)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	third, err := store.Ensure()
	if err != nil {
		t.Fatalf("Ensure after removal: %v", err)
	}
	if third.DeviceID == "" || third.DeviceID == first.DeviceID {
		t.Fatalf("expected a fresh device id, got %q", third.DeviceID)
	}
}

func TestBindAndUnbindKeepDeviceID(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "identity.json"))
	base, err := store.Ensure()
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	bound, err := store.Bind(" user-42 ")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if bound.UserID != "user-42" || !bound.Paired() || bound.PairedAt.IsZero() {
		t.Fatalf("unexpected bound identity %+v", bound)
	}
	if bound.DeviceID != base.DeviceID {
		t.Fatal("bind must not change the device id")
	}

	reloaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.UserID != "user-42" {
		t.Fatalf("binding not persisted: %+v", reloaded)
	}

	cleared, err := store.Unbind()
	if err != nil {
		t.Fatalf("Unbind: %v", err)
	}
	if cleared.Paired() || !cleared.PairedAt.IsZero() || cleared.DeviceID != base.DeviceID {
		t.Fatalf("unexpected cleared identity %+v", cleared)
	}
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	id, err := NewStore(filepath.Join(dir, "absent.json")).Load()
	if err != nil || id.DeviceID != "" {
		t.Fatalf("expected empty identity for missing file, got %+v err=%v", id, err)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(corrupt).Load(); err == nil {
		t.Fatal("expected decode error for corrupt file")
	}
}

func TestSanitizeHostname(t *testing.T) {
	cases := map[string]string{
		"Work-Laptop.local": "work-laptop",
		"  ":                "device",
		"my_box":            "my-box",
		"héllo":             "hllo",
	}
	for in, want := range cases {
		if got := sanitizeHostname(in); got != want {
			t.Errorf("sanitizeHostname(%q) = %q, want %q", in, got, want)
		}
	}
}
