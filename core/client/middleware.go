package client

import (
	"context"

	"github.com/leofalp/aichat/core/transport"
	"github.com/leofalp/aichat/providers/ai"
)

// Dispatch is a fully resolved call travelling through the middleware chain.
type Dispatch struct {
	ProviderID string
	Family     ai.Family
	Model      string

	// Call is what the transport sends. Middlewares may adjust it.
	Call transport.Call

	// Stream selects the streaming transport; OnChunk receives its deltas.
	Stream  bool
	OnChunk func(delta string)

	// HeaderWarning is set when custom headers fell back to the defaults.
	HeaderWarning error
}

// SendFunc performs one dispatch. It is the unit threaded through the
// middleware chain.
type SendFunc func(ctx context.Context, dispatch *Dispatch) (*ai.ChatResponse, error)

// Middleware intercepts dispatches. Each Middleware receives the next
// SendFunc in the chain and returns a new SendFunc that wraps it.
type Middleware func(next SendFunc) SendFunc

// buildSendChain wraps base with middlewares so that middlewares[0] is the
// outermost wrapper. Nil entries are skipped.
func buildSendChain(base SendFunc, middlewares []Middleware) SendFunc {
	chain := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] == nil {
			continue
		}
		chain = middlewares[i](chain)
	}
	return chain
}
