package generic

import (
	"errors"
	"testing"

	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/ai/openai"
)

func TestNew_FamilyNormalized(t *testing.T) {
	if New(ai.FamilyCustom).Family() != ai.FamilyCustom {
		t.Error("custom family must be preserved")
	}
	if New(ai.FamilyOpenAI).Family() != ai.FamilyGeneric {
		t.Error("non-custom families must map to generic")
	}
}

func TestFormatRequest_ChatCompletionsShape(t *testing.T) {
	body, err := New(ai.FamilyGeneric).FormatRequest(ai.ChatRequest{
		Model:        "llama-3.1-70b",
		SystemPrompt: "Be brief.",
		Messages:     []ai.Message{{Role: ai.RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("FormatRequest returned error: %v", err)
	}
	request := body.(openai.ChatCompletionRequest)
	if len(request.Messages) != 2 || request.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", request.Messages)
	}
	if request.MaxTokens != ai.DefaultMaxTokens {
		t.Errorf("max_tokens = %d", request.MaxTokens)
	}
}

func TestBuildHeaders(t *testing.T) {
	tests := []struct {
		name        string
		family      ai.Family
		raw         string
		wantHeaders map[string]string
		wantWarning bool
	}{
		{
			name:        "generic ignores custom headers",
			family:      ai.FamilyGeneric,
			raw:         `{"X-Key":"abc"}`,
			wantHeaders: map[string]string{"Authorization": "Bearer k", "Content-Type": "application/json"},
		},
		{
			name:        "custom empty falls back silently",
			family:      ai.FamilyCustom,
			raw:         "  ",
			wantHeaders: map[string]string{"Authorization": "Bearer k", "Content-Type": "application/json"},
		},
		{
			name:        "custom invalid JSON warns",
			family:      ai.FamilyCustom,
			raw:         "{not json",
			wantHeaders: map[string]string{"Authorization": "Bearer k", "Content-Type": "application/json"},
			wantWarning: true,
		},
		{
			name:        "custom headers get content type",
			family:      ai.FamilyCustom,
			raw:         `{"X-API-Key":"abc","X-Retries":3}`,
			wantHeaders: map[string]string{"X-API-Key": "abc", "X-Retries": "3", "Content-Type": "application/json"},
		},
		{
			name:        "custom content type kept case-insensitively",
			family:      ai.FamilyCustom,
			raw:         `{"content-type":"text/plain"}`,
			wantHeaders: map[string]string{"content-type": "text/plain"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New(tt.family).BuildHeaders("k", tt.raw)

			if tt.wantWarning {
				if !errors.Is(result.Warning, ai.ErrHeaderParse) {
					t.Errorf("Warning = %v, want ErrHeaderParse", result.Warning)
				}
			} else if result.Warning != nil {
				t.Errorf("unexpected warning: %v", result.Warning)
			}

			if len(result.Headers) != len(tt.wantHeaders) {
				t.Fatalf("headers = %v, want %v", result.Headers, tt.wantHeaders)
			}
			for name, want := range tt.wantHeaders {
				if result.Headers[name] != want {
					t.Errorf("header %q = %q, want %q", name, result.Headers[name], want)
				}
			}
		})
	}
}

func TestDecoder_DialectsAndFraming(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   string
	}{
		{
			name: "openai sse",
			chunks: []string{
				"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\ndata: {\"choi",
				"ces\":[{\"delta\":{\"content\":\"lo\"}}]}\n\ndata: [DONE]\n\n",
			},
			want: "Hello",
		},
		{
			name: "anthropic sse",
			chunks: []string{
				"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Hi\"}}\n\n",
			},
			want: "Hi",
		},
		{
			name:   "bare json lines",
			chunks: []string{"{\"choices\":[{\"delta\":{\"content\":\"A\"}}]}\n{\"delta\":{\"text\":\"B\"}}\n"},
			want:   "AB",
		},
		{
			name:   "malformed json skipped",
			chunks: []string{"data: {\"choices\":[\n", "data: {\"delta\":{\"text\":\"ok\"}}\n"},
			want:   "ok",
		},
		{
			name:   "plain text stream",
			chunks: []string{"Hello ", "wor", "ld"},
			want:   "Hello world",
		},
		{
			name:   "leading whitespace then sse",
			chunks: []string{"\n", "data: {\"delta\":{\"text\":\"x\"}}\n"},
			want:   "x",
		},
		{
			name:   "plain text starting with a bracket",
			chunks: []string{"[Note] closures capture ", "variables.\n", "{braces} stay too\n"},
			want:   "[Note] closures capture variables.\n{braces} stay too\n",
		},
		{
			name:   "plain text keeps indentation",
			chunks: []string{"def f():\n", "    return 1\n"},
			want:   "def f():\n    return 1\n",
		},
		{
			name:   "split data prefix",
			chunks: []string{"da", "ta: {\"delta\":{\"text\":\"Hi\"}}\n", "data: [DONE]\n"},
			want:   "Hi",
		},
		{
			name:   "bracket line without newline",
			chunks: []string{"[1] first"},
			want:   "[1] first",
		},
		{
			name:   "indented code in line mode",
			chunks: []string{"{\"delta\":{\"text\":\"a\"}}\n", "    indented\n"},
			want:   "a    indented\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ai.DecodeAll(New(ai.FamilyCustom).NewDecoder(""), tt.chunks...)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractFullText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"openai", `{"choices":[{"message":{"role":"assistant","content":"A"}}]}`, "A"},
		{"completion text", `{"choices":[{"text":"B"}]}`, "B"},
		{"anthropic", `{"content":[{"type":"text","text":"C"}]}`, "C"},
		{"gemini", `{"candidates":[{"content":{"parts":[{"text":"D"}]}}]}`, "D"},
		{"text field", `{"text":"E"}`, "E"},
		{"result field", `{"result":"F"}`, "F"},
		{"output field", `{"output":"G"}`, "G"},
		{"hugging face array", `[{"generated_text":"H"}]`, "H"},
		{"unknown json", `{"foo":1}`, `{"foo":1}`},
		{"plain text", `just text`, "just text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(ai.FamilyCustom).ExtractFullText([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
