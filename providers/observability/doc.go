// Package observability defines the core interfaces and semantic conventions
// used for tracing, metrics and structured logging throughout aichat.
//
// [Provider] composes [Tracer], [Metrics] and [Logger] into a single
// injectable dependency. The active [Span] travels through a
// [context.Context] via [ContextWithSpan] and [SpanFromContext], so low-level
// helpers such as the HTTP layer can record events without new parameters.
//
// semconv.go holds the attribute, span, event and metric names.
package observability
