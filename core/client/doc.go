// Package client is the inbound entry point for sending a chat exchange to
// any registered provider.
//
// [Client.SendMessage] validates the request before any network I/O
// (unknown provider, missing API key, incomplete custom configuration),
// resolves the model and endpoint against the injected [ai.Registry],
// formats the body and headers with the family codec and hands the
// resulting [Dispatch] to a middleware chain that ends in the transport.
//
// Middlewares wrap [SendFunc] values and are applied outermost-first. When
// an observer is configured the observability middleware is prepended so it
// sees the final outcome of retries and timeouts.
package client
