package ai

import (
	"encoding/json"
	"testing"
)

func extractText(payload []byte) (string, error) {
	var event struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", err
	}
	return event.Text, nil
}

func TestSSEData(t *testing.T) {
	tests := []struct {
		line    string
		payload string
		ok      bool
	}{
		{`data: {"a":1}`, `{"a":1}`, true},
		{`data:{"a":1}`, `{"a":1}`, true},
		{"data: [DONE]", "", false},
		{"[DONE]", "", false},
		{"", "", false},
		{"   ", "", false},
		{": keep-alive", "", false},
		{"event: message_start", "", false},
		{`{"a":1}`, `{"a":1}`, true},
		{"id: 7", "", false},
	}
	for _, tt := range tests {
		payload, ok := SSEData(tt.line)
		if payload != tt.payload || ok != tt.ok {
			t.Errorf("SSEData(%q) = (%q, %v), want (%q, %v)", tt.line, payload, ok, tt.payload, tt.ok)
		}
	}
}

func TestSSEDecoder_LineSplitAcrossChunks(t *testing.T) {
	decoder := NewSSEDecoder(FamilyGeneric, extractText)

	if got := decoder.Decode(`data: {"te`); got != "" {
		t.Fatalf("partial line must be held, got %q", got)
	}
	if got := decoder.Decode("xt\":\"Hello\"}\n\ndata: {\"text\":\" world\"}\n"); got != "Hello world" {
		t.Fatalf("got %q, want %q", got, "Hello world")
	}
}

func TestSSEDecoder_BareJSONLines(t *testing.T) {
	got := DecodeAll(NewSSEDecoder(FamilyGeneric, extractText),
		"{\"text\":\"A\"}\n",
		"data: {\"text\":\"B\"}\n\n{\"te",
		"xt\":\"C\"}",
	)
	if got != "ABC" {
		t.Errorf("got %q, want %q", got, "ABC")
	}
}

func TestSSEDecoder_MalformedLineIsolated(t *testing.T) {
	decoder := NewSSEDecoder(FamilyGeneric, extractText)

	got := DecodeAll(decoder,
		"data: {\"text\":\"A\"}\ndata: {not json}\ndata: {\"text\":\"B\"}\n",
	)
	if got != "AB" {
		t.Errorf("got %q, want %q", got, "AB")
	}
}

func TestSSEDecoder_FlushReleasesUnterminatedLine(t *testing.T) {
	decoder := NewSSEDecoder(FamilyGeneric, extractText)

	if got := DecodeAll(decoder, `data: {"text":"tail"}`); got != "tail" {
		t.Errorf("got %q, want %q", got, "tail")
	}
}

func TestFilterBlank(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "Hi"},
		{Role: RoleAssistant, Content: "   "},
		{Role: RoleAssistant, Content: ""},
		{Role: RoleUser, Content: "\n\tagain"},
	}

	filtered := FilterBlank(messages)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(filtered))
	}
	if filtered[0].Content != "Hi" || filtered[1].Content != "\n\tagain" {
		t.Errorf("unexpected filtered messages: %+v", filtered)
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 429, Message: "Rate limit reached"}
	if err.Error() != "API error 429: Rate limit reached" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !err.Retryable() {
		t.Error("429 should be retryable")
	}

	bare := &APIError{StatusCode: 401}
	if bare.Error() != "API error 401: Unauthorized" {
		t.Errorf("Error() = %q", bare.Error())
	}
	if bare.Retryable() {
		t.Error("401 should not be retryable")
	}
}
