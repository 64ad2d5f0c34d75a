// Package middleware provides built-in middlewares for the chat client.
//
// # Available Middleware
//
//   - [NewRetryMiddleware]: Retries failed buffered calls with exponential
//     backoff and jitter on transient provider errors (429 / 5xx).
//
//   - [NewTimeoutMiddleware]: Adds a per-call deadline via context.WithTimeout.
//     For streaming calls the deadline covers the whole stream.
//
//   - [NewLoggingMiddleware]: Emits structured slog entries before and after
//     every call, with three verbosity levels (Minimal, Standard, Verbose).
//
// # Usage
//
//	c := client.New(
//	    client.WithMiddleware(
//	        middleware.NewTimeoutMiddleware(2*time.Minute),
//	        middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: 3}),
//	        middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard),
//	    ),
//	)
//
// Middlewares execute outermost-first. In the example above a request travels
//
//	Timeout -> Retry -> Logging -> Transport
//
// and the response travels back in reverse.
package middleware
