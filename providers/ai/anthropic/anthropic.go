// Package anthropic implements the Anthropic Messages API wire format.
package anthropic

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/leofalp/aichat/providers/ai"
)

// APIVersion is the pinned anthropic-version header value.
const APIVersion = "2023-06-01"

// Codec implements ai.Codec for Anthropic.
type Codec struct{}

// New returns the Anthropic codec.
func New() *Codec {
	return &Codec{}
}

var _ ai.Codec = (*Codec)(nil)

func (c *Codec) Family() ai.Family {
	return ai.FamilyAnthropic
}

// FormatRequest lifts the system prompt into the top-level system field and
// keeps only user and assistant turns, since the API rejects system-role
// entries inside messages.
func (c *Codec) FormatRequest(request ai.ChatRequest) (any, error) {
	messages := make([]message, 0, len(request.Messages))
	for _, m := range request.Messages {
		if m.Role != ai.RoleUser && m.Role != ai.RoleAssistant {
			continue
		}
		messages = append(messages, message{Role: string(m.Role), Content: m.Content})
	}

	return messagesRequest{
		Model:     request.Model,
		System:    request.SystemPrompt,
		MaxTokens: request.MaxTokensOrDefault(),
		Messages:  messages,
		Stream:    request.Stream,
	}, nil
}

func (c *Codec) BuildHeaders(apiKey, _ string) ai.HeaderResult {
	return ai.HeaderResult{Headers: map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": APIVersion,
		"Content-Type":      ai.ContentTypeJSON,
	}}
}

func (c *Codec) StreamEndpoint(endpoint string) string {
	return endpoint
}

func (c *Codec) NewDecoder(_ string) ai.DeltaDecoder {
	return ai.NewSSEDecoder(ai.FamilyAnthropic, ExtractDelta)
}

// ExtractDelta returns delta.text of a content_block_delta event. Other
// events carry no text. An in-stream error event is logged and skipped.
func ExtractDelta(payload []byte) (string, error) {
	var event streamEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", err
	}
	if event.Error != nil {
		slog.Warn("anthropic stream error event", "type", event.Error.Type, "message", event.Error.Message)
		return "", nil
	}
	if event.Delta == nil {
		return "", nil
	}
	return event.Delta.Text, nil
}

// ExtractFullText returns the first text block of the response content.
func (c *Codec) ExtractFullText(body []byte) (string, error) {
	var response messagesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("error decoding messages response: %w", err)
	}
	for _, block := range response.Content {
		if block.Type == "" || block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text block in messages response", ai.ErrInvalidResponse)
}
