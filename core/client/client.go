package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leofalp/aichat/core/codec"
	"github.com/leofalp/aichat/core/prompt"
	"github.com/leofalp/aichat/core/transport"
	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/observability"
)

// Request is one inbound chat exchange. History is the conversation so far,
// ending with the user's new message.
type Request struct {
	History    []ai.Message
	ProviderID string
	APIKey     string

	// SystemPrompt overrides the default prompt built from Topic and
	// LessonContext.
	SystemPrompt  string
	Topic         string
	LessonContext string

	// ModelVersion always wins over CustomModel and the registry default.
	ModelVersion string

	// CustomModel, CustomEndpoint and CustomHeaders configure the custom
	// provider. CustomModel and CustomEndpoint also apply to Ollama.
	CustomModel    string
	CustomEndpoint string
	CustomHeaders  string

	MaxTokens int

	// Stream selects the streaming transport. OnChunk, when set, receives
	// every text delta in order.
	Stream  bool
	OnChunk func(delta string)
}

// Client sends chat exchanges. It holds no conversation state and is safe
// for concurrent use.
type Client struct {
	registry    ai.Registry
	transport   *transport.Transport
	observer    observability.Provider
	middlewares []Middleware
	send        SendFunc
}

// Option configures a Client.
type Option func(*Client)

// WithRegistry replaces the default provider registry.
func WithRegistry(registry ai.Registry) Option {
	return func(c *Client) {
		c.registry = registry
	}
}

// WithTransport replaces the default direct-mode transport.
func WithTransport(t *transport.Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithObserver enables tracing, metrics and logging through observer.
func WithObserver(observer observability.Provider) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithMiddleware appends middlewares to the chain. The first one given is
// the outermost.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, middlewares...)
	}
}

// New returns a Client using the default registry and a direct transport
// unless overridden by opts.
func New(opts ...Option) *Client {
	c := &Client{
		registry:  ai.DefaultRegistry(),
		transport: transport.New(transport.ModeDirect),
	}
	for _, opt := range opts {
		opt(c)
	}

	middlewares := c.middlewares
	if c.observer != nil {
		middlewares = append([]Middleware{NewObservabilityMiddleware(c.observer)}, middlewares...)
	}
	c.send = buildSendChain(c.dispatch, middlewares)
	return c
}

// Registry returns the client's provider registry.
func (c *Client) Registry() ai.Registry {
	return c.registry
}

// SendMessage sends the exchange and returns the assistant text.
//
// Configuration and credential errors are returned before any network I/O:
// ai.ErrUnsupportedProvider for unknown ids, ai.ErrMissingCredential for a
// blank API key on any family but Ollama, and ai.ErrMissingConfiguration
// for a custom provider without endpoint and model.
func (c *Client) SendMessage(ctx context.Context, request Request) (*ai.ChatResponse, error) {
	dispatch, err := c.Prepare(request)
	if err != nil {
		return nil, err
	}

	response, err := c.send(ctx, dispatch)
	if err != nil {
		return nil, err
	}
	response.HeaderWarning = dispatch.HeaderWarning
	return response, nil
}

// Prepare validates request and resolves it into a Dispatch without sending
// it.
func (c *Client) Prepare(request Request) (*Dispatch, error) {
	providerID := strings.TrimSpace(request.ProviderID)

	config, err := c.registry.Lookup(providerID)
	if err != nil {
		return nil, err
	}

	if config.Family.RequiresCredential() && strings.TrimSpace(request.APIKey) == "" {
		return nil, fmt.Errorf("%w: provider %q requires an API key", ai.ErrMissingCredential, providerID)
	}

	customModel := strings.TrimSpace(request.CustomModel)
	if customModel == "" {
		customModel = strings.TrimSpace(request.ModelVersion)
	}
	config, err = c.registry.Resolve(providerID, request.CustomEndpoint, customModel)
	if err != nil {
		return nil, err
	}

	model, endpoint := ResolveModel(config, request.ModelVersion)

	systemPrompt := strings.TrimSpace(request.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = prompt.Default(request.Topic, request.LessonContext)
	}

	familyCodec := codec.For(config.Family)
	headers := familyCodec.BuildHeaders(strings.TrimSpace(request.APIKey), request.CustomHeaders)
	if headers.Warning != nil {
		slog.Warn("using default headers",
			"provider", providerID,
			"error", headers.Warning.Error(),
		)
	}

	return &Dispatch{
		ProviderID: config.ID,
		Family:     config.Family,
		Model:      model,
		Call: transport.Call{
			Codec:    familyCodec,
			Endpoint: endpoint,
			Headers:  headers.Headers,
			Request: ai.ChatRequest{
				Model:        model,
				SystemPrompt: systemPrompt,
				Messages:     ai.FilterBlank(request.History),
				MaxTokens:    request.MaxTokens,
				Stream:       request.Stream,
			},
		},
		Stream:        request.Stream,
		OnChunk:       request.OnChunk,
		HeaderWarning: headers.Warning,
	}, nil
}

// ResolveModel returns the model to send and the endpoint to send it to.
// An explicit version wins; otherwise the resolved config's model is used,
// which already carries the custom model for Ollama and custom providers.
// Gemini addresses the model in the URL, so its endpoint follows the version.
func ResolveModel(config ai.ProviderConfig, version string) (model, endpoint string) {
	model, endpoint = config.Model, config.Endpoint

	version = strings.TrimSpace(version)
	if version == "" || version == model {
		return model, endpoint
	}

	if config.Family == ai.FamilyGemini && model != "" {
		endpoint = strings.Replace(endpoint, "/models/"+model+":", "/models/"+version+":", 1)
	}
	return version, endpoint
}

// dispatch is the innermost SendFunc: it hands the call to the transport.
func (c *Client) dispatch(ctx context.Context, dispatch *Dispatch) (*ai.ChatResponse, error) {
	response := &ai.ChatResponse{
		Model:      dispatch.Model,
		ProviderID: dispatch.ProviderID,
		Family:     dispatch.Family,
	}

	if !dispatch.Stream {
		text, err := c.transport.Send(ctx, dispatch.Call)
		if err != nil {
			return nil, err
		}
		response.Content = text
		return response, nil
	}

	result, err := c.transport.Stream(ctx, dispatch.Call, dispatch.OnChunk)
	if err != nil {
		return nil, err
	}
	response.Content = result.Text
	response.Streamed = result.Streamed
	return response, nil
}
