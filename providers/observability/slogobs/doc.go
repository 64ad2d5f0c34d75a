// Package slogobs provides an observability.Provider backed by log/slog.
// Spans and metric updates are emitted as DEBUG records through a text or
// JSON handler; counters keep their totals in memory. The entry point is
// [New], tuned with [WithFormat], [WithLevel], [WithOutput] and [WithLogger].
package slogobs
