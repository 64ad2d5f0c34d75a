// Package utils provides shared low-level helpers used throughout the aichat
// internals: HTTP request helpers for buffered and streaming calls, an
// incremental UTF-8 chunk reader, a line buffer that reassembles lines split
// across network chunks, lenient JSON parsing and small string helpers.
//
// Key entry points: [DoPost] for buffered JSON round-trips, [DoPostStream]
// together with [UTF8ChunkReader] for streaming bodies, and [LineBuffer] for
// per-line decoding of SSE and NDJSON streams.
package utils
