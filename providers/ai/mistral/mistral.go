// Package mistral implements the Mistral chat completions wire format, which
// is request- and response-compatible with OpenAI's. It is kept as its own
// family so logs and dispatch stay explicit about the provider in use.
package mistral

import (
	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/ai/openai"
)

// Codec implements ai.Codec for Mistral by reusing the OpenAI shape.
type Codec struct {
	openai.Codec
}

// New returns the Mistral codec.
func New() *Codec {
	return &Codec{}
}

var _ ai.Codec = (*Codec)(nil)

func (c *Codec) Family() ai.Family {
	return ai.FamilyMistral
}

func (c *Codec) NewDecoder(_ string) ai.DeltaDecoder {
	return ai.NewSSEDecoder(ai.FamilyMistral, openai.ExtractDelta)
}
