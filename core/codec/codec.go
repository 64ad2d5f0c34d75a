// Package codec dispatches on ai.Family to the family's wire codec.
//
// For is the single switch over the closed family set. The helpers below it
// are thin conveniences for callers that hold a family rather than a codec,
// and they never fail on malformed provider output.
package codec

import (
	"fmt"
	"log/slog"

	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/ai/anthropic"
	"github.com/leofalp/aichat/providers/ai/gemini"
	"github.com/leofalp/aichat/providers/ai/generic"
	"github.com/leofalp/aichat/providers/ai/mistral"
	"github.com/leofalp/aichat/providers/ai/ollama"
	"github.com/leofalp/aichat/providers/ai/openai"
)

// For returns the codec for family. Values outside the enum get the generic
// codec.
func For(family ai.Family) ai.Codec {
	switch family {
	case ai.FamilyOpenAI:
		return openai.New()
	case ai.FamilyAnthropic:
		return anthropic.New()
	case ai.FamilyGemini:
		return gemini.New()
	case ai.FamilyMistral:
		return mistral.New()
	case ai.FamilyOllama:
		return ollama.New()
	case ai.FamilyCustom:
		return generic.New(ai.FamilyCustom)
	default:
		return generic.New(ai.FamilyGeneric)
	}
}

// FormatRequest builds the request body for family.
func FormatRequest(family ai.Family, request ai.ChatRequest) (any, error) {
	body, err := For(family).FormatRequest(request)
	if err != nil {
		return nil, fmt.Errorf("error formatting %s request: %w", family, err)
	}
	return body, nil
}

// BuildHeaders builds request headers for family.
func BuildHeaders(family ai.Family, apiKey, rawCustomHeaders string) ai.HeaderResult {
	return For(family).BuildHeaders(apiKey, rawCustomHeaders)
}

// ExtractFullText returns the assistant text of a buffered response body.
func ExtractFullText(family ai.Family, body []byte) (string, error) {
	return For(family).ExtractFullText(body)
}

// ExtractDelta decodes one self-contained chunk and returns its text. The
// chunk is treated as a whole stream: partial lines at its end are flushed.
// Any failure, including a panic in a decoder, yields an empty string.
func ExtractDelta(family ai.Family, chunk, model string) (delta string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("stream chunk processing panicked",
				"family", family.String(),
				"model", model,
				"panic", fmt.Sprint(r),
				"chunk", utils.TruncateString(chunk, 200),
			)
			delta = ""
		}
	}()

	return ai.DecodeAll(For(family).NewDecoder(model), chunk)
}
