package requestctx

import (
	"context"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
	ctx := WithRequestID(context.Background(), "req-42")
	if got := GetRequestID(ctx); got != "req-42" {
		t.Fatalf("unexpected id %q", got)
	}
	if Logger(ctx) == nil {
		t.Fatal("expected logger")
	}
}
