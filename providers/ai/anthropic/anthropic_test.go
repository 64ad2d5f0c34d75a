package anthropic

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/leofalp/aichat/providers/ai"
)

func TestFormatRequest_SystemLiftedAndRolesCoerced(t *testing.T) {
	request := ai.ChatRequest{
		Model:        "claude-3-5-sonnet-20241022",
		SystemPrompt: "You are a tutor.",
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: "Hi"},
			{Role: ai.RoleSystem, Content: "Error: previous call failed"},
			{Role: ai.RoleAssistant, Content: "Hello"},
			{Role: ai.RoleUser, Content: "Explain recursion"},
		},
	}

	body, err := New().FormatRequest(request)
	if err != nil {
		t.Fatalf("FormatRequest returned error: %v", err)
	}

	encoded, _ := json.Marshal(body)
	var decoded struct {
		System    *string `json:"system"`
		Model     string  `json:"model"`
		MaxTokens int     `json:"max_tokens"`
		Stream    *bool   `json:"stream"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if decoded.System == nil || *decoded.System != "You are a tutor." {
		t.Errorf("top-level system = %v, want the system prompt", decoded.System)
	}
	if decoded.MaxTokens <= 0 {
		t.Errorf("max_tokens must be set, got %d", decoded.MaxTokens)
	}
	if decoded.Stream == nil {
		t.Error("stream field must be present")
	}
	if len(decoded.Messages) != 3 {
		t.Fatalf("expected 3 messages after dropping system entries, got %d", len(decoded.Messages))
	}
	for _, m := range decoded.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			t.Errorf("message with role %q leaked into messages", m.Role)
		}
	}
}

func TestBuildHeaders(t *testing.T) {
	headers := New().BuildHeaders("sk-ant", "").Headers

	if headers["x-api-key"] != "sk-ant" {
		t.Errorf("x-api-key = %q", headers["x-api-key"])
	}
	if headers["anthropic-version"] != APIVersion {
		t.Errorf("anthropic-version = %q", headers["anthropic-version"])
	}
	if _, ok := headers["Authorization"]; ok {
		t.Error("Anthropic must not send an Authorization header")
	}
}

func TestDecoder_HelloWorld(t *testing.T) {
	stream := strings.Join([]string{
		"event: message_start",
		`data: {"type":"message_start","message":{"id":"msg_1","content":[]}}`,
		"",
		"event: content_block_start",
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		"",
		"event: content_block_delta",
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`,
		"",
		"event: content_block_delta",
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" world"}}`,
		"",
		"event: message_delta",
		`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"}}`,
		"",
		"event: message_stop",
		`data: {"type":"message_stop"}`,
		"",
	}, "\n")

	// Deliver in uneven network chunks.
	chunks := []string{stream[:37], stream[37:301], stream[301:]}

	got := ai.DecodeAll(New().NewDecoder(""), chunks...)
	if got != "Hello world" {
		t.Errorf("got %q, want %q", got, "Hello world")
	}
}

func TestDecoder_ErrorEventYieldsNothing(t *testing.T) {
	got := ai.DecodeAll(New().NewDecoder(""),
		`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`+"\n")
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestExtractFullText(t *testing.T) {
	body := []byte(`{"id":"msg_1","content":[{"type":"text","text":"Recursion is..."}],"stop_reason":"end_turn"}`)

	text, err := New().ExtractFullText(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Recursion is..." {
		t.Errorf("got %q", text)
	}
}
