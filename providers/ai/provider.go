package ai

// ContentTypeJSON is the content type every provider family expects.
const ContentTypeJSON = "application/json"

// Codec maps provider-agnostic requests to one family's wire format and
// decodes that family's responses. Implementations are stateless; per-stream
// state lives in the DeltaDecoder returned by NewDecoder.
type Codec interface {
	// Family returns the wire protocol this codec speaks.
	Family() Family

	// FormatRequest builds the JSON-serializable request body.
	FormatRequest(request ChatRequest) (any, error)

	// BuildHeaders builds authentication and content headers. A non-nil
	// Warning means the caller-supplied headers were unusable and a default
	// set was returned instead.
	BuildHeaders(apiKey, rawCustomHeaders string) HeaderResult

	// StreamEndpoint returns the URL to use for a streaming call. Most
	// families stream from the same endpoint and return it unchanged.
	StreamEndpoint(endpoint string) string

	// NewDecoder returns a decoder for one streaming response. The model
	// name lets families with per-model quirks pick their parsing profile.
	NewDecoder(model string) DeltaDecoder

	// ExtractFullText returns the assistant text of a complete, buffered
	// response body.
	ExtractFullText(body []byte) (string, error)
}

// HeaderResult is the outcome of building request headers. Warning is set
// when the headers are a fallback; it is logged by the caller and never
// aborts the request.
type HeaderResult struct {
	Headers map[string]string
	Warning error
}

// BearerHeaders returns the Authorization + Content-Type set shared by
// OpenAI-compatible APIs.
func BearerHeaders(apiKey string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + apiKey,
		"Content-Type":  ContentTypeJSON,
	}
}
