// Package settings holds per-session chat settings and the application
// configuration shared by the binaries.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then AICHAT_* environment variables (a .env file in the working directory
// is loaded first). The core packages never read this global state; callers
// pass the resolved values explicitly.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/leofalp/aichat/core/client"
	"github.com/leofalp/aichat/core/client/middleware"
	"github.com/leofalp/aichat/core/transport"
	"github.com/leofalp/aichat/providers/ai"
)

// Settings is the per-session chat configuration.
type Settings struct {
	Provider       string `yaml:"provider"`
	APIKey         string `yaml:"api_key"`
	ModelVersion   string `yaml:"model_version"`
	CustomModel    string `yaml:"custom_model"`
	CustomEndpoint string `yaml:"custom_endpoint"`

	// CustomHeaders is a raw JSON object, parsed only for custom providers.
	CustomHeaders string `yaml:"custom_headers"`

	SystemPrompt  string `yaml:"system_prompt"`
	Topic         string `yaml:"topic"`
	LessonContext string `yaml:"lesson_context"`
	UseStreaming  bool   `yaml:"use_streaming"`
	MaxTokens     int    `yaml:"max_tokens"`
}

// Request builds the client request for one exchange.
func (s Settings) Request(history []ai.Message, onChunk func(string)) client.Request {
	return client.Request{
		History:        history,
		ProviderID:     s.Provider,
		APIKey:         s.APIKey,
		SystemPrompt:   s.SystemPrompt,
		Topic:          s.Topic,
		LessonContext:  s.LessonContext,
		ModelVersion:   s.ModelVersion,
		CustomModel:    s.CustomModel,
		CustomEndpoint: s.CustomEndpoint,
		CustomHeaders:  s.CustomHeaders,
		MaxTokens:      s.MaxTokens,
		Stream:         s.UseStreaming,
		OnChunk:        onChunk,
	}
}

// StorageConfig selects the conversation store.
type StorageConfig struct {
	// Driver is one of memory, file, sqlite, postgres or redis.
	Driver string `yaml:"driver"`
	// DSN is a directory for file, a path for sqlite, and a connection URL
	// for postgres and redis.
	DSN       string `yaml:"dsn"`
	KeyPrefix string `yaml:"key_prefix"`
}

// ProxyConfig configures the relay server.
type ProxyConfig struct {
	Listen        string   `yaml:"listen"`
	RatePerMinute int      `yaml:"rate_per_minute"`
	Burst         int      `yaml:"burst"`
	AllowedHosts  []string `yaml:"allowed_hosts"`
}

// LogConfig configures the slog observer.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProviderEntry declares an extra registry entry in the config file.
type ProviderEntry struct {
	ID       string `yaml:"id"`
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	Family   string `yaml:"family"`
}

// Config is the full application configuration.
type Config struct {
	Transport      string `yaml:"transport"`
	ProxyURL       string `yaml:"proxy_url"`
	RequestTimeout string `yaml:"request_timeout"`
	MaxRetries     int    `yaml:"max_retries"`

	Settings  Settings        `yaml:"settings"`
	Storage   StorageConfig   `yaml:"storage"`
	Proxy     ProxyConfig     `yaml:"proxy"`
	Log       LogConfig       `yaml:"log"`
	Providers []ProviderEntry `yaml:"providers"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Transport:      transport.ModeDirect.String(),
		ProxyURL:       transport.DefaultProxyURL,
		RequestTimeout: "2m",
		MaxRetries:     2,
		Settings: Settings{
			Provider:     "gpt-4o-mini",
			UseStreaming: true,
			MaxTokens:    ai.DefaultMaxTokens,
		},
		Storage: StorageConfig{
			Driver:    "sqlite",
			DSN:       "aichat.db",
			KeyPrefix: "aichat:",
		},
		Proxy: ProxyConfig{
			Listen:        ":8787",
			RatePerMinute: 60,
			Burst:         10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads .env, then the YAML file at path (skipped when path is empty),
// then AICHAT_* environment overrides.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"AICHAT_TRANSPORT":       &c.Transport,
		"AICHAT_PROXY_URL":       &c.ProxyURL,
		"AICHAT_TIMEOUT":         &c.RequestTimeout,
		"AICHAT_PROVIDER":        &c.Settings.Provider,
		"AICHAT_API_KEY":         &c.Settings.APIKey,
		"AICHAT_MODEL_VERSION":   &c.Settings.ModelVersion,
		"AICHAT_CUSTOM_MODEL":    &c.Settings.CustomModel,
		"AICHAT_CUSTOM_ENDPOINT": &c.Settings.CustomEndpoint,
		"AICHAT_CUSTOM_HEADERS":  &c.Settings.CustomHeaders,
		"AICHAT_SYSTEM_PROMPT":   &c.Settings.SystemPrompt,
		"AICHAT_TOPIC":           &c.Settings.Topic,
		"AICHAT_STORE":           &c.Storage.Driver,
		"AICHAT_STORE_DSN":       &c.Storage.DSN,
		"AICHAT_PROXY_LISTEN":    &c.Proxy.Listen,
		"AICHAT_LOG_LEVEL":       &c.Log.Level,
		"AICHAT_LOG_FORMAT":      &c.Log.Format,
	}
	for key, field := range strs {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			*field = value
		}
	}

	ints := map[string]*int{
		"AICHAT_MAX_RETRIES": &c.MaxRetries,
		"AICHAT_MAX_TOKENS":  &c.Settings.MaxTokens,
		"AICHAT_PROXY_RATE":  &c.Proxy.RatePerMinute,
		"AICHAT_PROXY_BURST": &c.Proxy.Burst,
	}
	for key, field := range ints {
		value := strings.TrimSpace(getenv(key))
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*field = n
	}

	if value := strings.TrimSpace(getenv("AICHAT_STREAM")); value != "" {
		stream, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config: AICHAT_STREAM: %w", err)
		}
		c.Settings.UseStreaming = stream
	}
	return nil
}

// Validate checks the values that are parsed lazily.
func (c Config) Validate() error {
	if _, err := c.Mode(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Timeout(); err != nil {
		return fmt.Errorf("config: request_timeout: %w", err)
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	return nil
}

// Mode returns the configured transport mode.
func (c Config) Mode() (transport.Mode, error) {
	return transport.ParseMode(c.Transport)
}

// Timeout returns the per-request timeout; zero disables it.
func (c Config) Timeout() (time.Duration, error) {
	if strings.TrimSpace(c.RequestTimeout) == "" {
		return 0, nil
	}
	return time.ParseDuration(c.RequestTimeout)
}

// Registry returns the default registry extended with the configured
// providers.
func (c Config) Registry() (ai.Registry, error) {
	configs := make([]ai.ProviderConfig, 0, len(c.Providers))
	for _, entry := range c.Providers {
		if strings.TrimSpace(entry.ID) == "" {
			return ai.Registry{}, errors.New("config: provider entry without id")
		}
		family, ok := ai.ParseFamily(entry.Family)
		if !ok && entry.Family != "" {
			return ai.Registry{}, fmt.Errorf("config: provider %q: unknown family %q", entry.ID, entry.Family)
		}
		configs = append(configs, ai.ProviderConfig{
			ID:       entry.ID,
			Endpoint: entry.Endpoint,
			Model:    entry.Model,
			Family:   family,
		})
	}
	return ai.DefaultRegistry().With(configs...), nil
}

// NewTransport builds the transport for the configured mode.
func (c Config) NewTransport(opts ...transport.Option) (*transport.Transport, error) {
	mode, err := c.Mode()
	if err != nil {
		return nil, err
	}
	if mode == transport.ModeProxied && c.ProxyURL != "" {
		opts = append([]transport.Option{transport.WithProxyURL(c.ProxyURL)}, opts...)
	}
	return transport.New(mode, opts...), nil
}

// Middlewares returns the timeout and retry middlewares for the config.
// Retries are disabled when MaxRetries is zero or negative.
func (c Config) Middlewares() ([]client.Middleware, error) {
	timeout, err := c.Timeout()
	if err != nil {
		return nil, err
	}

	var middlewares []client.Middleware
	if c.MaxRetries > 0 {
		middlewares = append(middlewares, middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: c.MaxRetries}))
	}
	if timeout > 0 {
		middlewares = append(middlewares, middleware.NewTimeoutMiddleware(timeout))
	}
	return middlewares, nil
}
