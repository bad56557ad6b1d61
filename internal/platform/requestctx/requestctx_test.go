package requestctx

import (
	"context"
	"testing"
)

func TestRequestIDFromContextRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "story-42")
	if got := RequestIDFromContext(ctx); got != "story-42" {
		t.Fatalf("RequestIDFromContext = %q, want %q", got, "story-42")
	}
}

func TestRequestIDFromContextEmpty(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestRequestIDNilContext(t *testing.T) {
	if got := RequestIDFromContext(nil); got != "" {
		t.Fatalf("expected empty string for nil context, got %q", got)
	}
	ctx := WithRequestID(nil, "story-99")
	if got := RequestIDFromContext(ctx); got != "story-99" {
		t.Fatalf("RequestIDFromContext = %q, want %q", got, "story-99")
	}
}
