package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leofalp/aichat/core/transport"
	"github.com/leofalp/aichat/providers/ai"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if mode, _ := cfg.Mode(); mode != transport.ModeDirect {
		t.Errorf("mode = %v, want direct", mode)
	}
	if timeout, _ := cfg.Timeout(); timeout != 2*time.Minute {
		t.Errorf("timeout = %v", timeout)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.KeyPrefix != "aichat:" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if !cfg.Settings.UseStreaming {
		t.Error("streaming should be on by default")
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	t.Setenv("TEST_AICHAT_KEY", "sk-from-env")
	path := writeFile(t, "aichat.yaml", `
transport: proxied
proxy_url: http://relay.internal/api/proxy
request_timeout: 45s
max_retries: 0
settings:
  provider: claude-3-haiku
  api_key: ${TEST_AICHAT_KEY}
  topic: chemistry
  use_streaming: false
storage:
  driver: redis
  dsn: redis://localhost:6379/0
providers:
  - id: local-vllm
    endpoint: http://gpu-box:8000/v1/chat/completions
    model: qwen2.5-7b
    family: generic
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if mode, _ := cfg.Mode(); mode != transport.ModeProxied {
		t.Errorf("mode = %v, want proxied", mode)
	}
	if cfg.Settings.APIKey != "sk-from-env" {
		t.Errorf("api key = %q, env reference not expanded", cfg.Settings.APIKey)
	}
	if cfg.Settings.Provider != "claude-3-haiku" || cfg.Settings.Topic != "chemistry" || cfg.Settings.UseStreaming {
		t.Errorf("settings = %+v", cfg.Settings)
	}
	if cfg.Storage.Driver != "redis" {
		t.Errorf("storage driver = %q", cfg.Storage.Driver)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Storage.KeyPrefix != "aichat:" {
		t.Errorf("key prefix = %q", cfg.Storage.KeyPrefix)
	}

	registry, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry returned error: %v", err)
	}
	provider, err := registry.Lookup("local-vllm")
	if err != nil {
		t.Fatalf("configured provider missing: %v", err)
	}
	if provider.Family != ai.FamilyGeneric || provider.Model != "qwen2.5-7b" {
		t.Errorf("provider = %+v", provider)
	}
	if _, err := registry.Lookup("gpt-4"); err != nil {
		t.Errorf("built-in providers must survive: %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "aichat.yaml", "settings:\n  provider: gpt-4\n")
	t.Setenv("AICHAT_PROVIDER", "ollama-qwen")
	t.Setenv("AICHAT_STREAM", "false")
	t.Setenv("AICHAT_MAX_TOKENS", "2048")
	t.Setenv("AICHAT_TRANSPORT", "proxy")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Settings.Provider != "ollama-qwen" {
		t.Errorf("provider = %q", cfg.Settings.Provider)
	}
	if cfg.Settings.UseStreaming {
		t.Error("AICHAT_STREAM=false must disable streaming")
	}
	if cfg.Settings.MaxTokens != 2048 {
		t.Errorf("max tokens = %d", cfg.Settings.MaxTokens)
	}
	if mode, _ := cfg.Mode(); mode != transport.ModeProxied {
		t.Errorf("mode = %v", mode)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad transport", yaml: "transport: carrier-pigeon\n"},
		{name: "bad timeout", yaml: "request_timeout: soon\n"},
		{name: "unknown family", yaml: "providers:\n  - id: x\n    family: cobol\n"},
		{name: "provider without id", yaml: "providers:\n  - endpoint: http://x\n"},
		{name: "bad int env", yaml: "{}\n", env: map[string]string{"AICHAT_MAX_RETRIES": "many"}},
		{name: "bad bool env", yaml: "{}\n", env: map[string]string{"AICHAT_STREAM": "sometimes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}
			if _, err := Load(writeFile(t, "aichat.yaml", tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for an explicit path that does not exist")
	}
}

func TestSettingsRequest(t *testing.T) {
	history := []ai.Message{{Role: ai.RoleUser, Content: "Hi"}}
	called := false

	request := Settings{
		Provider:      "custom",
		APIKey:        "k",
		CustomModel:   "m",
		CustomHeaders: `{"X-Org":"1"}`,
		Topic:         "history",
		UseStreaming:  true,
	}.Request(history, func(string) { called = true })

	if request.ProviderID != "custom" || request.CustomModel != "m" || request.CustomHeaders != `{"X-Org":"1"}` {
		t.Errorf("request = %+v", request)
	}
	if !request.Stream || request.Topic != "history" || len(request.History) != 1 {
		t.Errorf("request = %+v", request)
	}
	request.OnChunk("x")
	if !called {
		t.Error("OnChunk not forwarded")
	}
}

func TestNewTransport(t *testing.T) {
	cfg := Default()
	cfg.Transport = "proxied"

	tr, err := cfg.NewTransport()
	if err != nil {
		t.Fatalf("NewTransport returned error: %v", err)
	}
	if tr.Mode() != transport.ModeProxied {
		t.Errorf("mode = %v", tr.Mode())
	}
}

func TestMiddlewares(t *testing.T) {
	cfg := Default()
	middlewares, err := cfg.Middlewares()
	if err != nil {
		t.Fatalf("Middlewares returned error: %v", err)
	}
	if len(middlewares) != 2 {
		t.Errorf("expected retry and timeout middlewares, got %d", len(middlewares))
	}

	cfg.MaxRetries = 0
	cfg.RequestTimeout = ""
	if middlewares, _ := cfg.Middlewares(); len(middlewares) != 0 {
		t.Errorf("expected no middlewares, got %d", len(middlewares))
	}
}
