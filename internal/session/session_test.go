package session_test

import (
	"testing"

	"shotclock/internal/identity"
	"shotclock/internal/session"
	"shotclock/internal/testsupport"
)

func TestNewLoadsPersistedBinding(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := identity.NewStore(cfg.IdentityPath())
	if _, err := store.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := store.Bind("user-1"); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	ctx, err := session.New(cfg, nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	if ctx.UserID() != "user-1" {
		t.Fatalf("expected persisted binding, got %q", ctx.UserID())
	}
	if ctx.DeviceID() == "" {
		t.Fatal("expected device id")
	}
}

func TestBindAndClearUser(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, err := session.New(cfg, nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	if ctx.UserID() != "" {
		t.Fatalf("expected unpaired context, got %q", ctx.UserID())
	}
	if err := ctx.BindUser(""); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if err := ctx.BindUser("U"); err != nil {
		t.Fatalf("BindUser: %v", err)
	}
	if ctx.UserID() != "U" {
		t.Fatalf("expected U, got %q", ctx.UserID())
	}

	reopened, err := session.New(cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.UserID() != "U" || reopened.DeviceID() != ctx.DeviceID() {
		t.Fatalf("expected binding and device id to survive restart, got %+v", reopened.Identity())
	}

	if err := ctx.ClearUser(); err != nil {
		t.Fatalf("ClearUser: %v", err)
	}
	if ctx.UserID() != "" {
		t.Fatal("expected cleared binding")
	}
}
