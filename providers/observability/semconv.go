package observability

// Semantic conventions for observability attributes.

// --- Provider Attributes ---

const (
	// AttrProviderID is the registry id the caller asked for (e.g. "gpt-4o")
	AttrProviderID = "provider.id"

	// AttrProviderFamily is the wire family (e.g. "anthropic")
	AttrProviderFamily = "provider.family"

	// AttrModel is the model identifier actually sent
	AttrModel = "provider.model"

	// AttrEndpoint is the provider endpoint URL
	AttrEndpoint = "provider.endpoint"

	// AttrHeaderWarning is set when custom headers fell back to defaults
	AttrHeaderWarning = "provider.header_warning"
)

// --- Transport Attributes ---

const (
	AttrTransportMode  = "transport.mode"
	AttrTransportPhase = "transport.phase"
	AttrStreaming      = "transport.streaming"

	// AttrStreamDeltas is the number of non-empty deltas emitted by a stream
	AttrStreamDeltas = "stream.deltas"

	// AttrStreamChars is the accumulated text length in bytes
	AttrStreamChars = "stream.chars"
)

// --- HTTP Attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPStream           = "http.stream"
	AttrHTTPDuration         = "http.request.duration"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- Conversation Attributes ---

const (
	AttrConversationID = "conversation.id"
	AttrMessageCount   = "conversation.message_count"
	AttrMessageRole    = "conversation.message.role"
)

// --- General Attributes ---

const (
	AttrError             = "error"
	AttrDuration          = "duration"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	SpanSendMessage = "client.send_message"
	SpanTransport   = "transport.call"
)

// --- Event Names ---

const (
	EventHTTPRequest       = "http.request.prepared"
	EventHTTPResponse      = "http.response.received"
	EventHTTPStreamStarted = "http.stream_response.started"
	EventHTTPError         = "http.request.error"

	EventPhaseChange    = "transport.phase"
	EventStreamFallback = "transport.stream_fallback"
	EventHeaderWarning  = "provider.header_warning"
	EventChunkDropped   = "stream.chunk_dropped"
)

// --- Metric Names ---

const (
	MetricRequestCount    = "aichat.client.request.count"
	MetricRequestDuration = "aichat.client.request.duration"
	MetricRequestErrors   = "aichat.client.request.errors"
	MetricStreamDeltas    = "aichat.transport.stream.deltas"
	MetricStreamFallbacks = "aichat.transport.stream.fallbacks"
)
