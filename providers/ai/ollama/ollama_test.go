package ollama

import (
	"strings"
	"testing"

	"github.com/leofalp/aichat/providers/ai"
)

func TestProfileFor(t *testing.T) {
	tests := []struct {
		model  string
		want   string
		filter bool
	}{
		{"qwen2.5-72b-instruct", "qwen", true},
		{"Qwen2.5-Coder", "qwen", true},
		{"llama-3.2", "llama", false},
		{"gemma2:27b", "gemma", false},
		{"deepseek-r1:14b", "deepseek", false},
		{"mistral-nemo", "mistral", false},
		{"phi3", "llama", false},
		{"", "llama", false},
		// First match wins: gemma is checked before llama.
		{"llama-gemma-merge", "gemma", false},
	}

	for _, tt := range tests {
		profile := ProfileFor(tt.model)
		if profile.Name != tt.want {
			t.Errorf("ProfileFor(%q) = %q, want %q", tt.model, profile.Name, tt.want)
		}
		if profile.FilterMetadata != tt.filter {
			t.Errorf("ProfileFor(%q).FilterMetadata = %v, want %v", tt.model, profile.FilterMetadata, tt.filter)
		}
	}
}

func TestFlattenPrompt(t *testing.T) {
	prompt := FlattenPrompt("Teach Python.", []ai.Message{
		{Role: ai.RoleUser, Content: "What is a list?"},
		{Role: ai.RoleAssistant, Content: "An ordered collection."},
		{Role: ai.RoleUser, Content: "And a tuple?"},
	})

	want := "System: Teach Python.\n\nUser: What is a list?\n\nAssistant: An ordered collection.\n\nUser: And a tuple?\n\nAssistant:"
	if prompt != want {
		t.Errorf("prompt =\n%q\nwant\n%q", prompt, want)
	}
}

func TestFormatRequest_OptionsFromModel(t *testing.T) {
	body, err := New().FormatRequest(ai.ChatRequest{
		Model:    "qwen2.5:7b",
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "Hi"}},
		Stream:   true,
	})
	if err != nil {
		t.Fatalf("FormatRequest returned error: %v", err)
	}

	request := body.(generateRequest)
	if request.Options.TopK != 20 || request.Options.NumCtx != 32768 {
		t.Errorf("expected qwen options, got %+v", request.Options)
	}
	if request.Options.NumPredict != ai.DefaultMaxTokens {
		t.Errorf("num_predict = %d", request.Options.NumPredict)
	}
	if !request.Stream || request.Model != "qwen2.5:7b" {
		t.Errorf("request = %+v", request)
	}
	if !strings.HasPrefix(request.Prompt, "User: Hi") {
		t.Errorf("prompt = %q", request.Prompt)
	}
}

func TestBuildHeaders_NoAuth(t *testing.T) {
	headers := New().BuildHeaders("", "").Headers
	if len(headers) != 1 || headers["Content-Type"] != "application/json" {
		t.Errorf("headers = %v, want only Content-Type", headers)
	}
}

func TestDecoder_NDJSONAcrossChunks(t *testing.T) {
	chunks := []string{
		`{"model":"llama3.2","response":"Hel","done":false}` + "\n" + `{"model":"llama3.2","resp`,
		`onse":"lo","done":false}` + "\n",
		`{"model":"llama3.2","response":"","done":true,"eval_count":12}` + "\n",
	}

	if got := ai.DecodeAll(New().NewDecoder("llama3.2"), chunks...); got != "Hello" {
		t.Errorf("got %q, want %q", got, "Hello")
	}
}

func TestDecoder_ChatShapedMessageContent(t *testing.T) {
	got := ai.DecodeAll(New().NewDecoder("llama3.2"),
		`{"message":{"role":"assistant","content":"Hi there"},"done":false}`+"\n")
	if got != "Hi there" {
		t.Errorf("got %q", got)
	}
}

func TestDecoder_MalformedLineSkippedWithoutFiltering(t *testing.T) {
	got := ai.DecodeAll(New().NewDecoder("llama3.2"),
		`{"response":"A"}`+"\n"+`{"response":"broken`+"\n"+`{"response":"B"}`+"\n")
	if got != "AB" {
		t.Errorf("got %q, want %q", got, "AB")
	}
}

func TestDecoder_QwenNearJSONFallback(t *testing.T) {
	decoder := New().NewDecoder("qwen2.5-72b-instruct")

	// Truncated object: repaired by jsonrepair.
	got := decoder.Decode(`{"model":"qwen2.5","response":"Hello","done":false` + "\n")
	// Not JSON at all: regex extraction of the response value.
	got += decoder.Decode(`garbage "response":" world\n" trailing` + "\n")
	got += decoder.Flush()

	if got != "Hello world\n" {
		t.Errorf("got %q, want %q", got, "Hello world\n")
	}
}

func TestDecoder_QwenMetadataFiltered(t *testing.T) {
	got := ai.DecodeAll(New().NewDecoder("qwen2.5"),
		`{"response":"<|im_start|>assistant\nLists are mutable."}`+"\n",
		`{"response":" \"done\": false, \"eval_count\": 3,"}`+"\n",
		`{"response":"<|im_end|>"}`+"\n",
	)
	if got != "Lists are mutable. " {
		t.Errorf("got %q, want %q", got, "Lists are mutable. ")
	}
}

func TestDecoder_GemmaMarkdownMarkersKeptWhole(t *testing.T) {
	decoder := New().NewDecoder("gemma2")

	first := decoder.Decode(`{"response":"This is *"}` + "\n")
	second := decoder.Decode(`{"response":"*important** text"}` + "\n")

	if first != "This is " {
		t.Errorf("first delta = %q, trailing marker must be withheld", first)
	}
	if second != "**important** text" {
		t.Errorf("second delta = %q", second)
	}
	if rest := decoder.Flush(); rest != "" {
		t.Errorf("flush = %q, want empty", rest)
	}
}

func TestDecoder_GemmaClosesTruncatedBold(t *testing.T) {
	got := ai.DecodeAll(New().NewDecoder("gemma2"), `{"response":"Remember: **always"}`+"\n")
	if got != "Remember: **always**" {
		t.Errorf("got %q", got)
	}
}

func TestDecoder_GemmaLeavesExponentAlone(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   string
	}{
		{"single chunk", []string{`{"response":"2**3 is 8."}` + "\n"}, "2**3 is 8."},
		{"marker split across chunks", []string{`{"response":"2*"}` + "\n", `{"response":"*3 is 8."}` + "\n"}, "2**3 is 8."},
		{"exponent beside open bold", []string{`{"response":"**Note:** 2**10 is 1024"}` + "\n"}, "**Note:** 2**10 is 1024"},
		{"exponent beside truncated bold", []string{`{"response":"x**2 is **key"}` + "\n"}, "x**2 is **key**"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ai.DecodeAll(New().NewDecoder("gemma2"), tt.chunks...)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecoder_DeepSeekFenceRepair(t *testing.T) {
	decoder := New().NewDecoder("deepseek-r1")

	var deltas []string
	for _, chunk := range []string{
		"{\"response\":\"Example:\\n``\"}\n",
		"{\"response\":\"`go\\nfmt.Println(1)\\n\"}\n",
	} {
		deltas = append(deltas, decoder.Decode(chunk))
	}
	deltas = append(deltas, decoder.Flush())

	if deltas[0] != "Example:\n" {
		t.Errorf("partial fence must be withheld, got %q", deltas[0])
	}
	if !strings.HasPrefix(deltas[1], "```go") {
		t.Errorf("fence must arrive whole, got %q", deltas[1])
	}
	if deltas[2] != "```" {
		t.Errorf("unterminated code block must be closed at end of stream, got %q", deltas[2])
	}
}

func TestExtractFullText(t *testing.T) {
	codec := New()

	text, err := codec.ExtractFullText([]byte(`{"model":"llama3.2","response":"Full answer","done":true}`))
	if err != nil || text != "Full answer" {
		t.Errorf("generate body: got %q, %v", text, err)
	}

	text, err = codec.ExtractFullText([]byte(`{"message":{"role":"assistant","content":"Chat answer"},"done":true}`))
	if err != nil || text != "Chat answer" {
		t.Errorf("chat body: got %q, %v", text, err)
	}

	if _, err := codec.ExtractFullText([]byte(`{"done":true}`)); err == nil {
		t.Error("expected error for body without text fields")
	}
}
