package services_test

import (
	"context"
	"testing"

	"mantra/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRenderID(ctx, "r-42")
	ctx = services.WithStep(ctx, "mix")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RenderIDFromContext(ctx); !ok || id != "r-42" {
		t.Fatalf("unexpected render id: %v %v", id, ok)
	}
	if step, ok := services.StepFromContext(ctx); !ok || step != "mix" {
		t.Fatalf("unexpected step: %v %v", step, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStepBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStep(ctx, "")
	if _, ok := services.StepFromContext(ctx); ok {
		t.Fatal("expected no step value")
	}
}
