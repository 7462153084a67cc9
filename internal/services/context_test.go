package services_test

import (
	"context"
	"testing"

	"strmrefresh/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithEventID(ctx, "evt-1")
	ctx = services.WithServer(ctx, "emby-home")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.EventIDFromContext(ctx); !ok || id != "evt-1" {
		t.Fatalf("unexpected event id: %v %v", id, ok)
	}
	if name, ok := services.ServerFromContext(ctx); !ok || name != "emby-home" {
		t.Fatalf("unexpected server: %v %v", name, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithServer(ctx, "")
	ctx = services.WithEventID(ctx, "")
	if _, ok := services.ServerFromContext(ctx); ok {
		t.Fatal("expected no server value")
	}
	if _, ok := services.EventIDFromContext(ctx); ok {
		t.Fatal("expected no event id value")
	}
}
