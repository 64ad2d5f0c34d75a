// Package ollama implements the Ollama /api/generate wire format.
//
// The conversation is flattened into a single prompt string and generation
// options are chosen per model family by substring match on the model name.
// Responses stream as newline-delimited JSON rather than SSE; see decoder.go
// for the per-model handling of that stream.
package ollama

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/aichat/providers/ai"
)

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options Options `json:"options"`
}

// generateResponse covers both /api/generate and /api/chat shaped bodies,
// buffered or streamed.
type generateResponse struct {
	Response *string `json:"response,omitempty"`
	Message  *struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message,omitempty"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

func (r generateResponse) text() string {
	if r.Response != nil && *r.Response != "" {
		return *r.Response
	}
	if r.Message != nil {
		return r.Message.Content
	}
	return ""
}

// Codec implements ai.Codec for Ollama.
type Codec struct{}

// New returns the Ollama codec.
func New() *Codec {
	return &Codec{}
}

var _ ai.Codec = (*Codec)(nil)

func (c *Codec) Family() ai.Family {
	return ai.FamilyOllama
}

func (c *Codec) FormatRequest(request ai.ChatRequest) (any, error) {
	options := ProfileFor(request.Model).Options
	options.NumPredict = request.MaxTokensOrDefault()

	return generateRequest{
		Model:   request.Model,
		Prompt:  FlattenPrompt(request.SystemPrompt, request.Messages),
		Stream:  request.Stream,
		Options: options,
	}, nil
}

// FlattenPrompt renders the conversation as
//
//	System: <prompt>\n\nUser: <msg>\n\nAssistant: <msg>\n\n...Assistant:
//
// ending with an Assistant cue for the model to complete.
func FlattenPrompt(systemPrompt string, messages []ai.Message) string {
	var prompt strings.Builder
	if systemPrompt != "" {
		writeTurn(&prompt, "System", systemPrompt)
	}
	for _, message := range messages {
		writeTurn(&prompt, speaker(message.Role), message.Content)
	}
	prompt.WriteString("Assistant:")
	return prompt.String()
}

func writeTurn(prompt *strings.Builder, speaker, content string) {
	prompt.WriteString(speaker)
	prompt.WriteString(": ")
	prompt.WriteString(content)
	prompt.WriteString("\n\n")
}

func speaker(role ai.MessageRole) string {
	switch role {
	case ai.RoleSystem:
		return "System"
	case ai.RoleAssistant:
		return "Assistant"
	default:
		return "User"
	}
}

// BuildHeaders returns only a content type; the local daemon has no auth.
func (c *Codec) BuildHeaders(_, _ string) ai.HeaderResult {
	return ai.HeaderResult{Headers: map[string]string{"Content-Type": ai.ContentTypeJSON}}
}

func (c *Codec) StreamEndpoint(endpoint string) string {
	return endpoint
}

func (c *Codec) NewDecoder(model string) ai.DeltaDecoder {
	return newDecoder(ProfileFor(model))
}

// ExtractFullText returns the response field, or message.content for chat
// shaped bodies.
func (c *Codec) ExtractFullText(body []byte) (string, error) {
	var response generateResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("error decoding ollama response: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("%w: %s", ai.ErrInvalidResponse, response.Error)
	}
	if response.Response == nil && response.Message == nil {
		return "", fmt.Errorf("%w: no response or message field", ai.ErrInvalidResponse)
	}
	return response.text(), nil
}
