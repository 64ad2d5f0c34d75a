package middleware

import (
	"context"
	"time"

	"github.com/leofalp/aichat/core/client"
	"github.com/leofalp/aichat/providers/ai"
)

// NewTimeoutMiddleware enforces a per-call deadline. The transport reads the
// whole stream before returning, so for streaming calls the deadline covers
// the complete stream, not just the time to first byte.
//
// If the caller supplies a context that already has a shorter deadline, that
// shorter deadline wins as per normal context semantics.
func NewTimeoutMiddleware(timeout time.Duration) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, dispatch *client.Dispatch) (*ai.ChatResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return next(ctx, dispatch)
		}
	}
}
