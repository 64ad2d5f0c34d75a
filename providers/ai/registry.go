package ai

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ProviderConfig identifies one backend. Custom entries carry an empty
// endpoint and model; both are supplied per call.
type ProviderConfig struct {
	ID       string `json:"id" yaml:"id"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Model    string `json:"model" yaml:"model"`
	Family   Family `json:"family" yaml:"family"`
}

// IsCustom reports whether the endpoint and model come from the caller.
func (c ProviderConfig) IsCustom() bool {
	return c.Family == FamilyCustom
}

// Registry is an immutable mapping of provider ids to their configuration.
// Build one with NewRegistry or DefaultRegistry and inject it where needed.
type Registry struct {
	entries map[string]ProviderConfig
}

// NewRegistry builds a registry from the given entries. Later entries with
// the same id replace earlier ones. Ids are matched case-insensitively.
func NewRegistry(configs ...ProviderConfig) Registry {
	entries := make(map[string]ProviderConfig, len(configs))
	for _, config := range configs {
		entries[normalizeID(config.ID)] = config
	}
	return Registry{entries: entries}
}

// With returns a copy of the registry extended with the given entries.
func (r Registry) With(configs ...ProviderConfig) Registry {
	merged := make([]ProviderConfig, 0, len(r.entries)+len(configs))
	for _, config := range r.entries {
		merged = append(merged, config)
	}
	return NewRegistry(append(merged, configs...)...)
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Lookup returns the configuration for a provider id.
func (r Registry) Lookup(providerID string) (ProviderConfig, error) {
	config, ok := r.entries[normalizeID(providerID)]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, providerID)
	}
	return config, nil
}

// LookupEndpoint returns the registry endpoint for a provider id. Custom
// providers have no registry endpoint and yield ErrMissingConfiguration.
func (r Registry) LookupEndpoint(providerID string) (string, error) {
	config, err := r.Lookup(providerID)
	if err != nil {
		return "", err
	}
	if config.Endpoint == "" {
		return "", fmt.Errorf("%w: provider %q needs an explicit endpoint", ErrMissingConfiguration, providerID)
	}
	return config.Endpoint, nil
}

// LookupModelID returns the default model for a provider id, or an empty
// string for custom providers.
func (r Registry) LookupModelID(providerID string) (string, error) {
	config, err := r.Lookup(providerID)
	if err != nil {
		return "", err
	}
	return config.Model, nil
}

// Resolve looks up a provider and applies the caller's overrides. Custom
// providers require both customEndpoint and customModel; a missing value is
// ErrMissingConfiguration. Ollama accepts a customEndpoint to reach a
// non-local daemon and a customModel for locally pulled models.
func (r Registry) Resolve(providerID, customEndpoint, customModel string) (ProviderConfig, error) {
	config, err := r.Lookup(providerID)
	if err != nil {
		return ProviderConfig{}, err
	}

	customEndpoint = strings.TrimSpace(customEndpoint)
	customModel = strings.TrimSpace(customModel)

	switch config.Family {
	case FamilyCustom:
		if customEndpoint == "" {
			return ProviderConfig{}, fmt.Errorf("%w: custom provider requires an endpoint", ErrMissingConfiguration)
		}
		if customModel == "" {
			return ProviderConfig{}, fmt.Errorf("%w: custom provider requires a model", ErrMissingConfiguration)
		}
		config.Endpoint = customEndpoint
		config.Model = customModel
	case FamilyOllama:
		if customEndpoint != "" {
			config.Endpoint = customEndpoint
		}
		if customModel != "" {
			config.Model = customModel
		}
	}

	return config, nil
}

// IDs returns every registered provider id in sorted order.
func (r Registry) IDs() []string {
	ids := make([]string, 0, len(r.entries))
	for _, config := range r.entries {
		ids = append(ids, config.ID)
	}
	slices.Sort(ids)
	return ids
}

// Hosts returns the distinct endpoint hosts known to the registry, sorted.
// Custom entries contribute nothing.
func (r Registry) Hosts() []string {
	var hosts []string
	for _, config := range r.entries {
		if config.Endpoint == "" {
			continue
		}
		parsed, err := url.Parse(config.Endpoint)
		if err != nil || parsed.Host == "" {
			continue
		}
		if !slices.Contains(hosts, parsed.Host) {
			hosts = append(hosts, parsed.Host)
		}
	}
	slices.Sort(hosts)
	return hosts
}

/*
	##### DEFAULT PROVIDER TABLE #####
*/

const (
	openAIChatURL    = "https://api.openai.com/v1/chat/completions"
	anthropicURL     = "https://api.anthropic.com/v1/messages"
	geminiBaseURL    = "https://generativelanguage.googleapis.com/v1beta/models/"
	mistralChatURL   = "https://api.mistral.ai/v1/chat/completions"
	ollamaGenerate   = "http://localhost:11434/api/generate"
	groqChatURL      = "https://api.groq.com/openai/v1/chat/completions"
	openRouterURL    = "https://openrouter.ai/api/v1/chat/completions"
	deepSeekChatURL  = "https://api.deepseek.com/chat/completions"
	togetherChatURL  = "https://api.together.xyz/v1/chat/completions"
	perplexityURL    = "https://api.perplexity.ai/chat/completions"
	geminiGenerate   = ":generateContent"
	defaultOllamaTag = "llama3.2"
)

func geminiEndpoint(model string) string {
	return geminiBaseURL + model + geminiGenerate
}

// DefaultRegistry returns the built-in provider table.
func DefaultRegistry() Registry {
	return NewRegistry(
		// OpenAI
		ProviderConfig{ID: "gpt-4", Endpoint: openAIChatURL, Model: "gpt-4", Family: FamilyOpenAI},
		ProviderConfig{ID: "gpt-4-turbo", Endpoint: openAIChatURL, Model: "gpt-4-turbo", Family: FamilyOpenAI},
		ProviderConfig{ID: "gpt-4o", Endpoint: openAIChatURL, Model: "gpt-4o", Family: FamilyOpenAI},
		ProviderConfig{ID: "gpt-4o-mini", Endpoint: openAIChatURL, Model: "gpt-4o-mini", Family: FamilyOpenAI},
		ProviderConfig{ID: "gpt-3.5-turbo", Endpoint: openAIChatURL, Model: "gpt-3.5-turbo", Family: FamilyOpenAI},

		// Anthropic
		ProviderConfig{ID: "claude-3-opus", Endpoint: anthropicURL, Model: "claude-3-opus-20240229", Family: FamilyAnthropic},
		ProviderConfig{ID: "claude-3-5-sonnet", Endpoint: anthropicURL, Model: "claude-3-5-sonnet-20241022", Family: FamilyAnthropic},
		ProviderConfig{ID: "claude-3-haiku", Endpoint: anthropicURL, Model: "claude-3-haiku-20240307", Family: FamilyAnthropic},

		// Gemini
		ProviderConfig{ID: "gemini-pro", Endpoint: geminiEndpoint("gemini-1.5-pro"), Model: "gemini-1.5-pro", Family: FamilyGemini},
		ProviderConfig{ID: "gemini-flash", Endpoint: geminiEndpoint("gemini-1.5-flash"), Model: "gemini-1.5-flash", Family: FamilyGemini},

		// Mistral
		ProviderConfig{ID: "mistral-large", Endpoint: mistralChatURL, Model: "mistral-large-latest", Family: FamilyMistral},
		ProviderConfig{ID: "mistral-medium", Endpoint: mistralChatURL, Model: "mistral-medium-latest", Family: FamilyMistral},
		ProviderConfig{ID: "mistral-small", Endpoint: mistralChatURL, Model: "mistral-small-latest", Family: FamilyMistral},
		ProviderConfig{ID: "codestral", Endpoint: mistralChatURL, Model: "codestral-latest", Family: FamilyMistral},

		// Ollama
		ProviderConfig{ID: "ollama", Endpoint: ollamaGenerate, Model: defaultOllamaTag, Family: FamilyOllama},
		ProviderConfig{ID: "ollama-llama", Endpoint: ollamaGenerate, Model: defaultOllamaTag, Family: FamilyOllama},
		ProviderConfig{ID: "ollama-gemma", Endpoint: ollamaGenerate, Model: "gemma2", Family: FamilyOllama},
		ProviderConfig{ID: "ollama-qwen", Endpoint: ollamaGenerate, Model: "qwen2.5", Family: FamilyOllama},
		ProviderConfig{ID: "ollama-deepseek", Endpoint: ollamaGenerate, Model: "deepseek-r1", Family: FamilyOllama},
		ProviderConfig{ID: "ollama-mistral", Endpoint: ollamaGenerate, Model: "mistral", Family: FamilyOllama},

		// OpenAI-compatible hosts
		ProviderConfig{ID: "groq", Endpoint: groqChatURL, Model: "llama-3.1-70b-versatile", Family: FamilyGeneric},
		ProviderConfig{ID: "openrouter", Endpoint: openRouterURL, Model: "openai/gpt-4o-mini", Family: FamilyGeneric},
		ProviderConfig{ID: "deepseek", Endpoint: deepSeekChatURL, Model: "deepseek-chat", Family: FamilyGeneric},
		ProviderConfig{ID: "together", Endpoint: togetherChatURL, Model: "meta-llama/Llama-3-70b-chat-hf", Family: FamilyGeneric},
		ProviderConfig{ID: "perplexity", Endpoint: perplexityURL, Model: "llama-3.1-sonar-small-128k-online", Family: FamilyGeneric},

		// User-declared
		ProviderConfig{ID: "custom", Family: FamilyCustom},
		ProviderConfig{ID: "other", Family: FamilyCustom},
	)
}
