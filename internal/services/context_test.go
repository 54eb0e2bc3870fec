package services_test

import (
	"context"
	"testing"

	"shotclock/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTickID(ctx, "tick-1")
	ctx = services.WithComponent(ctx, "agent")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.TickIDFromContext(ctx); !ok || id != "tick-1" {
		t.Fatalf("unexpected tick id: %v %v", id, ok)
	}
	if component, ok := services.ComponentFromContext(ctx); !ok || component != "agent" {
		t.Fatalf("unexpected component: %v %v", component, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTickID(ctx, "")
	ctx = services.WithComponent(ctx, "")
	if _, ok := services.TickIDFromContext(ctx); ok {
		t.Fatal("expected no tick id value")
	}
	if _, ok := services.ComponentFromContext(ctx); ok {
		t.Fatal("expected no component value")
	}
}
