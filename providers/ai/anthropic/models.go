package anthropic

/*
	ANTHROPIC MESSAGES API - WIRE TYPES
*/

// messagesRequest is the body of a /v1/messages call. The system prompt is
// a top-level field; the messages array only admits user and assistant turns.
type messagesRequest struct {
	Model     string    `json:"model"`
	System    string    `json:"system"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
	Stream    bool      `json:"stream"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the buffered response body.
type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

/*
	Streaming uses SSE with "event:" lines naming the event type followed by
	a "data:" line whose JSON repeats it in the "type" field. Only data lines
	are decoded:
	  message_start -> content_block_start -> content_block_delta* ->
	  content_block_stop -> message_delta -> message_stop
*/

type streamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type,omitempty"`
		Text string `json:"text,omitempty"`
	} `json:"delta,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
