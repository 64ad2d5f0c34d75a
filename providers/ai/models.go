package ai

import (
	"fmt"
	"strings"
	"time"
)

// DefaultMaxTokens is the completion budget sent when a request does not set one.
const DefaultMaxTokens = 1024

/*
	##### PROVIDER FAMILIES #####
*/

// Family is the closed set of wire protocols a provider can speak. It is
// resolved once at registry lookup and passed explicitly to formatters,
// header builders and decoders.
type Family int

const (
	FamilyOpenAI Family = iota
	FamilyAnthropic
	FamilyGemini
	FamilyMistral
	FamilyOllama
	FamilyGeneric
	FamilyCustom
)

var familyNames = map[Family]string{
	FamilyOpenAI:    "openai",
	FamilyAnthropic: "anthropic",
	FamilyGemini:    "gemini",
	FamilyMistral:   "mistral",
	FamilyOllama:    "ollama",
	FamilyGeneric:   "generic",
	FamilyCustom:    "custom",
}

// String returns the lowercase family name used in logs and config files.
func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFamily maps a family name back to its Family value. Unknown names map
// to FamilyGeneric, the OpenAI-compatible safe default, and ok is false.
func ParseFamily(name string) (family Family, ok bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range familyNames {
		if n == name {
			return f, true
		}
	}
	return FamilyGeneric, false
}

// MarshalText encodes the family by name so config files stay readable.
func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a family name.
func (f *Family) UnmarshalText(text []byte) error {
	family, ok := ParseFamily(string(text))
	if !ok {
		return fmt.Errorf("unknown provider family %q", text)
	}
	*f = family
	return nil
}

// RequiresCredential reports whether requests for this family must carry an
// API key. Ollama runs locally without authentication.
func (f Family) RequiresCredential() bool {
	return f != FamilyOllama
}

/*
	##### MESSAGES #####
*/

// MessageRole represents the role of a message sender
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single chat turn. Content is mutated only while an assistant
// reply is streaming; it is immutable once finalized.
type Message struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// IsBlank reports whether the message has no sendable content.
func (m Message) IsBlank() bool {
	return strings.TrimSpace(m.Content) == ""
}

// FilterBlank returns the messages with non-whitespace content, preserving order.
// Providers must never receive empty turns.
func FilterBlank(messages []Message) []Message {
	filtered := make([]Message, 0, len(messages))
	for _, message := range messages {
		if message.IsBlank() {
			continue
		}
		filtered = append(filtered, message)
	}
	return filtered
}

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest is the provider-agnostic input to a family Codec.
type ChatRequest struct {
	Model        string    `json:"model"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`
	MaxTokens    int       `json:"max_tokens,omitempty"`
	Stream       bool      `json:"stream,omitempty"`
}

// MaxTokensOrDefault returns the request budget, falling back to DefaultMaxTokens.
func (r ChatRequest) MaxTokensOrDefault() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return DefaultMaxTokens
}

/*
	##### PROVIDER OUTPUT #####
*/

// ChatResponse is the final text of one exchange plus how it was obtained.
type ChatResponse struct {
	Content    string `json:"content"`
	Model      string `json:"model"`
	ProviderID string `json:"provider_id"`
	Family     Family `json:"family"`

	// Streamed is false when the text came from a buffered call, including
	// the proxied fallback after a failed stream.
	Streamed bool `json:"streamed"`

	// HeaderWarning is set when custom headers could not be parsed and the
	// default header set was used instead.
	HeaderWarning error `json:"-"`
}
