// Package gemini implements the Google Gemini generateContent wire format.
//
// Gemini has no system role in this contract: system turns are sent as user
// turns and the system prompt becomes a synthetic leading user turn. Assistant
// turns use Gemini's "model" role. Streaming swaps the :generateContent
// endpoint for :streamGenerateContent?alt=sse.
package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/aichat/providers/ai"
)

const (
	generateSuffix = ":generateContent"
	streamSuffix   = ":streamGenerateContent?alt=sse"

	roleUser  = "user"
	roleModel = "model"
)

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

// generateContentResponse is shared by buffered bodies and streamed chunks.
type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// Codec implements ai.Codec for Gemini.
type Codec struct{}

// New returns the Gemini codec.
func New() *Codec {
	return &Codec{}
}

var _ ai.Codec = (*Codec)(nil)

func (c *Codec) Family() ai.Family {
	return ai.FamilyGemini
}

func (c *Codec) FormatRequest(request ai.ChatRequest) (any, error) {
	contents := make([]content, 0, len(request.Messages)+1)
	if request.SystemPrompt != "" {
		contents = append(contents, content{Role: roleUser, Parts: []part{{Text: request.SystemPrompt}}})
	}
	for _, message := range request.Messages {
		contents = append(contents, content{Role: mapRole(message.Role), Parts: []part{{Text: message.Content}}})
	}

	return generateContentRequest{
		Contents:         contents,
		GenerationConfig: generationConfig{MaxOutputTokens: request.MaxTokensOrDefault()},
	}, nil
}

func mapRole(role ai.MessageRole) string {
	if role == ai.RoleAssistant {
		return roleModel
	}
	return roleUser
}

func (c *Codec) BuildHeaders(apiKey, _ string) ai.HeaderResult {
	return ai.HeaderResult{Headers: map[string]string{
		"x-goog-api-key": apiKey,
		"Content-Type":   ai.ContentTypeJSON,
	}}
}

// StreamEndpoint rewrites a :generateContent URL to its SSE streaming
// counterpart. URLs already pointing at the stream endpoint are unchanged.
func (c *Codec) StreamEndpoint(endpoint string) string {
	if strings.Contains(endpoint, ":streamGenerateContent") {
		return endpoint
	}
	if base, ok := strings.CutSuffix(endpoint, generateSuffix); ok {
		return base + streamSuffix
	}
	return endpoint
}

func (c *Codec) NewDecoder(_ string) ai.DeltaDecoder {
	return ai.NewSSEDecoder(ai.FamilyGemini, extractCandidateText)
}

func extractCandidateText(payload []byte) (string, error) {
	var response generateContentResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return "", err
	}
	return firstText(response), nil
}

func firstText(response generateContentResponse) string {
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return response.Candidates[0].Content.Parts[0].Text
}

// ExtractFullText returns candidates[0].content.parts[0].text.
func (c *Codec) ExtractFullText(body []byte) (string, error) {
	var response generateContentResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("error decoding generateContent response: %w", err)
	}
	if len(response.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in generateContent response", ai.ErrInvalidResponse)
	}
	return firstText(response), nil
}
