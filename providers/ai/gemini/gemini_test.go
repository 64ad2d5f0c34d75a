package gemini

import (
	"encoding/json"
	"testing"

	"github.com/leofalp/aichat/providers/ai"
)

func TestFormatRequest_ContentsAndRoles(t *testing.T) {
	request := ai.ChatRequest{
		Model:        "gemini-1.5-pro",
		SystemPrompt: "Teach SQL.",
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: "What is a join?"},
			{Role: ai.RoleAssistant, Content: "A join combines rows."},
			{Role: ai.RoleSystem, Content: "Error: timeout"},
		},
	}

	body, err := New().FormatRequest(request)
	if err != nil {
		t.Fatalf("FormatRequest returned error: %v", err)
	}

	encoded, _ := json.Marshal(body)
	var decoded struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if len(decoded.Contents) != 4 {
		t.Fatalf("expected 4 contents (system turn + 3), got %d", len(decoded.Contents))
	}
	if decoded.Contents[0].Role != "user" || decoded.Contents[0].Parts[0].Text != "Teach SQL." {
		t.Errorf("system prompt must be a leading user turn, got %+v", decoded.Contents[0])
	}
	wantRoles := []string{"user", "user", "model", "user"}
	for i, want := range wantRoles {
		if decoded.Contents[i].Role != want {
			t.Errorf("contents[%d].role = %q, want %q", i, decoded.Contents[i].Role, want)
		}
		if decoded.Contents[i].Role == "system" {
			t.Errorf("contents[%d] carries a system role", i)
		}
	}
}

func TestStreamEndpoint(t *testing.T) {
	codec := New()
	in := "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-pro:generateContent"
	want := "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-pro:streamGenerateContent?alt=sse"

	if got := codec.StreamEndpoint(in); got != want {
		t.Errorf("StreamEndpoint = %q, want %q", got, want)
	}
	if got := codec.StreamEndpoint(want); got != want {
		t.Errorf("stream endpoint must be left unchanged, got %q", got)
	}
}

func TestBuildHeaders(t *testing.T) {
	headers := New().BuildHeaders("g-key", "").Headers
	if headers["x-goog-api-key"] != "g-key" {
		t.Errorf("x-goog-api-key = %q", headers["x-goog-api-key"])
	}
}

func TestDecoder_Deltas(t *testing.T) {
	chunks := []string{
		`data: {"candidates":[{"content":{"role":"model","parts":[{"text":"Hello"}]}}]}` + "\r\n\r\n",
		`data: {"candidates":[{"content":{"role":"model","parts":[{"text":" world"}]},"finishReason":"STOP"}]}` + "\r\n\r\n",
	}

	if got := ai.DecodeAll(New().NewDecoder(""), chunks...); got != "Hello world" {
		t.Errorf("got %q, want %q", got, "Hello world")
	}
}

func TestExtractFullText(t *testing.T) {
	body := []byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"A join combines rows."}]},"finishReason":"STOP"}]}`)

	text, err := New().ExtractFullText(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "A join combines rows." {
		t.Errorf("got %q", text)
	}
}
