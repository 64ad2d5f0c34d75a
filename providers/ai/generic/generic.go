// Package generic implements the codec for OpenAI-compatible hosts that are
// not first-class families (Groq, OpenRouter, Together, ...) and for the
// user-declared custom provider.
//
// Requests use the chat completions shape. Responses are read leniently
// because a custom endpoint may speak any of the common dialects.
package generic

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/ai/openai"
)

// Codec implements ai.Codec for FamilyGeneric and FamilyCustom.
type Codec struct {
	family ai.Family
}

// New returns the codec for family, which must be ai.FamilyGeneric or
// ai.FamilyCustom. Any other family is treated as generic.
func New(family ai.Family) *Codec {
	if family != ai.FamilyCustom {
		family = ai.FamilyGeneric
	}
	return &Codec{family: family}
}

var _ ai.Codec = (*Codec)(nil)

func (c *Codec) Family() ai.Family {
	return c.family
}

func (c *Codec) FormatRequest(request ai.ChatRequest) (any, error) {
	return openai.BuildRequest(request), nil
}

// BuildHeaders returns bearer auth for generic hosts. For the custom family
// rawCustomHeaders, a JSON object, replaces the default set entirely.
func (c *Codec) BuildHeaders(apiKey, rawCustomHeaders string) ai.HeaderResult {
	if c.family != ai.FamilyCustom || strings.TrimSpace(rawCustomHeaders) == "" {
		return ai.HeaderResult{Headers: ai.BearerHeaders(apiKey)}
	}

	headers, err := ParseCustomHeaders(rawCustomHeaders)
	if err != nil {
		return ai.HeaderResult{
			Headers: ai.BearerHeaders(apiKey),
			Warning: fmt.Errorf("%w: %v", ai.ErrHeaderParse, err),
		}
	}
	if !hasHeader(headers, "Content-Type") {
		headers["Content-Type"] = ai.ContentTypeJSON
	}
	return ai.HeaderResult{Headers: headers}
}

// ParseCustomHeaders decodes a JSON object of header names to values.
// Non-string values are rendered with fmt.
func ParseCustomHeaders(raw string) (map[string]string, error) {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}
	if decoded == nil {
		return nil, fmt.Errorf("custom headers must be a JSON object")
	}

	headers := make(map[string]string, len(decoded)+1)
	for name, value := range decoded {
		switch v := value.(type) {
		case string:
			headers[name] = v
		case nil:
			headers[name] = ""
		default:
			headers[name] = fmt.Sprint(v)
		}
	}
	return headers, nil
}

func hasHeader(headers map[string]string, name string) bool {
	for key := range headers {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}

func (c *Codec) StreamEndpoint(endpoint string) string {
	return endpoint
}

func (c *Codec) NewDecoder(_ string) ai.DeltaDecoder {
	return &decoder{family: c.family}
}

// ExtractFullText tries the OpenAI, Anthropic and Gemini response shapes,
// then a handful of common top-level text fields. A body that matches none
// of them is returned as is.
func (c *Codec) ExtractFullText(body []byte) (string, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		slog.Debug("custom provider returned non-JSON body", "family", c.family.String(), "bytes", len(body))
		return string(body), nil
	}

	if text, ok := firstString(decoded, fullTextPaths); ok {
		return text, nil
	}
	if array, ok := decoded.([]any); ok && len(array) > 0 {
		if text, ok := firstString(array[0], fullTextPaths); ok {
			return text, nil
		}
	}
	return string(body), nil
}

var fullTextPaths = [][]any{
	{"choices", 0, "message", "content"},
	{"choices", 0, "text"},
	{"content", 0, "text"},
	{"candidates", 0, "content", "parts", 0, "text"},
	{"text"},
	{"result"},
	{"output"},
	{"generated_text"},
}

var deltaPaths = [][]any{
	{"choices", 0, "delta", "content"},
	{"delta", "text"},
	{"choices", 0, "message", "content"},
	{"candidates", 0, "content", "parts", 0, "text"},
}

// firstString returns the first non-empty string found along paths.
func firstString(value any, paths [][]any) (string, bool) {
	for _, path := range paths {
		if text, ok := utils.LookupString(value, path...); ok && text != "" {
			return text, true
		}
	}
	return "", false
}
