package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leofalp/aichat/core/client"
	"github.com/leofalp/aichat/providers/ai"
)

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var sawDeadline bool
	next := func(ctx context.Context, _ *client.Dispatch) (*ai.ChatResponse, error) {
		_, sawDeadline = ctx.Deadline()
		return &ai.ChatResponse{Content: "ok"}, nil
	}

	if _, err := NewTimeoutMiddleware(time.Minute)(next)(context.Background(), &client.Dispatch{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawDeadline {
		t.Error("next must receive a context with a deadline")
	}
}

func TestTimeoutMiddleware_Expires(t *testing.T) {
	next := func(ctx context.Context, _ *client.Dispatch) (*ai.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := NewTimeoutMiddleware(10*time.Millisecond)(next)(context.Background(), &client.Dispatch{Stream: true})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}
