package openai

import (
	"encoding/json"
	"fmt"

	"github.com/leofalp/aichat/providers/ai"
)

// Codec implements ai.Codec for the OpenAI chat completions API.
type Codec struct{}

// New returns the OpenAI codec.
func New() *Codec {
	return &Codec{}
}

var _ ai.Codec = (*Codec)(nil)

func (c *Codec) Family() ai.Family {
	return ai.FamilyOpenAI
}

// FormatRequest prepends the system prompt as a system message and passes
// the conversation through verbatim.
func (c *Codec) FormatRequest(request ai.ChatRequest) (any, error) {
	return BuildRequest(request), nil
}

// BuildRequest converts a ChatRequest to the chat completions body. It is
// exported for the families that share this shape.
func BuildRequest(request ai.ChatRequest) ChatCompletionRequest {
	return ChatCompletionRequest{
		Model:     request.Model,
		Messages:  FormatMessages(request.SystemPrompt, request.Messages),
		MaxTokens: request.MaxTokensOrDefault(),
		Stream:    request.Stream,
	}
}

// FormatMessages returns [system] + messages. An empty system prompt is omitted.
func FormatMessages(systemPrompt string, messages []ai.Message) []ChatMessage {
	formatted := make([]ChatMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		formatted = append(formatted, ChatMessage{Role: string(ai.RoleSystem), Content: systemPrompt})
	}
	for _, message := range messages {
		formatted = append(formatted, ChatMessage{Role: string(message.Role), Content: message.Content})
	}
	return formatted
}

func (c *Codec) BuildHeaders(apiKey, _ string) ai.HeaderResult {
	return ai.HeaderResult{Headers: ai.BearerHeaders(apiKey)}
}

func (c *Codec) StreamEndpoint(endpoint string) string {
	return endpoint
}

func (c *Codec) NewDecoder(_ string) ai.DeltaDecoder {
	return ai.NewSSEDecoder(ai.FamilyOpenAI, ExtractDelta)
}

// ExtractDelta returns choices[0].delta.content of a streamed chunk.
func ExtractDelta(payload []byte) (string, error) {
	var chunk chatCompletionChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return "", err
	}
	if len(chunk.Choices) == 0 {
		return "", nil
	}
	return chunk.Choices[0].Delta.Content, nil
}

func (c *Codec) ExtractFullText(body []byte) (string, error) {
	return ExtractText(body)
}

// ExtractText returns choices[0].message.content of a buffered response.
func ExtractText(body []byte) (string, error) {
	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("error decoding chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in chat completion", ai.ErrInvalidResponse)
	}
	choice := response.Choices[0]
	if choice.Message.Content == "" && choice.Text != "" {
		return choice.Text, nil
	}
	return choice.Message.Content, nil
}
