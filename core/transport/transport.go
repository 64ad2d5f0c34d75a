package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/observability"
)

// Call is one provider request, already resolved against the registry.
type Call struct {
	Codec    ai.Codec
	Endpoint string
	Headers  map[string]string
	Request  ai.ChatRequest
}

// Result is the outcome of Stream. Streamed is false when the text came from
// the buffered fallback.
type Result struct {
	Text     string
	Streamed bool
	Deltas   int
}

// DeltaFunc receives each non-empty text delta, in order.
type DeltaFunc func(delta string)

// PhaseFunc observes phase transitions of a call.
type PhaseFunc func(phase Phase)

// Transport dispatches calls in a fixed Mode. It is safe for concurrent use.
type Transport struct {
	mode       Mode
	proxyURL   string
	httpClient *http.Client
	onPhase    PhaseFunc
	observer   observability.Provider
}

// Option configures a Transport.
type Option func(*Transport)

// WithProxyURL sets the relay URL used in proxied mode.
func WithProxyURL(url string) Option {
	return func(t *Transport) {
		t.proxyURL = url
	}
}

// WithHTTPClient replaces http.DefaultClient. Timeouts are the client's.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		t.httpClient = client
	}
}

// WithPhaseHook registers fn to observe phase transitions.
func WithPhaseHook(fn PhaseFunc) Option {
	return func(t *Transport) {
		t.onPhase = fn
	}
}

// WithObserver records stream metrics on provider.
func WithObserver(provider observability.Provider) Option {
	return func(t *Transport) {
		t.observer = provider
	}
}

// New returns a Transport for mode.
func New(mode Mode, opts ...Option) *Transport {
	t := &Transport{
		mode:       mode,
		proxyURL:   DefaultProxyURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Mode returns the transport's network mode.
func (t *Transport) Mode() Mode {
	return t.mode
}

// Send performs a buffered call and returns the extracted assistant text.
func (t *Transport) Send(ctx context.Context, call Call) (string, error) {
	if err := validateCall(call); err != nil {
		return "", err
	}
	t.phase(ctx, PhaseIdle)

	text, err := t.send(ctx, call)
	if err != nil {
		t.phase(ctx, PhaseFailed)
		return "", err
	}
	t.phase(ctx, PhaseCompleted)
	return text, nil
}

// Stream performs a streaming call. Each non-empty delta is passed to
// onDelta as soon as it is decoded and appended to Result.Text.
//
// In proxied mode any stream failure other than cancellation is retried
// once as a buffered call; deltas already delivered are superseded by the
// buffered text. In direct mode the failure is returned.
func (t *Transport) Stream(ctx context.Context, call Call, onDelta DeltaFunc) (Result, error) {
	if err := validateCall(call); err != nil {
		return Result{}, err
	}
	t.phase(ctx, PhaseIdle)

	result, err := t.stream(ctx, call, onDelta)
	if err == nil {
		t.phase(ctx, PhaseCompleted)
		return result, nil
	}

	if ctx.Err() != nil || t.mode != ModeProxied {
		t.phase(ctx, PhaseFailed)
		return result, err
	}

	slog.WarnContext(ctx, "stream failed, retrying as buffered request",
		"mode", t.mode.String(),
		"endpoint", call.Endpoint,
		"deltas_delivered", result.Deltas,
		"error", err.Error(),
	)
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventStreamFallback,
			observability.Error(err),
			observability.Int(observability.AttrStreamDeltas, result.Deltas),
		)
	}
	if t.observer != nil {
		t.observer.Counter(observability.MetricStreamFallbacks).Add(ctx, 1,
			observability.String(observability.AttrProviderFamily, call.Codec.Family().String()),
		)
	}

	text, err := t.send(ctx, call)
	if err != nil {
		t.phase(ctx, PhaseFailed)
		return Result{}, err
	}
	t.phase(ctx, PhaseCompleted)
	return Result{Text: text, Streamed: false}, nil
}

func (t *Transport) send(ctx context.Context, call Call) (string, error) {
	request := call.Request
	request.Stream = false

	body, err := call.Codec.FormatRequest(request)
	if err != nil {
		return "", fmt.Errorf("error formatting request: %w", err)
	}

	t.phase(ctx, PhaseDispatching)
	url, headers, payload, err := t.route(call.Endpoint, call.Headers, body, false)
	if err != nil {
		return "", err
	}

	t.phase(ctx, PhaseBuffered)
	respBody, err := utils.DoPost(ctx, t.httpClient, url, headers, payload)
	if err != nil {
		return "", normalizeError(err)
	}

	text, err := call.Codec.ExtractFullText(respBody)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ai.ErrInvalidResponse, err)
	}
	return text, nil
}

func (t *Transport) stream(ctx context.Context, call Call, onDelta DeltaFunc) (Result, error) {
	request := call.Request
	request.Stream = true

	body, err := call.Codec.FormatRequest(request)
	if err != nil {
		return Result{}, fmt.Errorf("error formatting request: %w", err)
	}

	t.phase(ctx, PhaseDispatching)
	endpoint := call.Codec.StreamEndpoint(call.Endpoint)
	url, headers, payload, err := t.route(endpoint, call.Headers, body, true)
	if err != nil {
		return Result{}, err
	}

	response, err := utils.DoPostStream(ctx, t.httpClient, url, headers, payload)
	if err != nil {
		return Result{}, normalizeError(err)
	}
	defer utils.CloseWithLog(response.Body)

	t.phase(ctx, PhaseStreaming)
	return t.readStream(ctx, response, call.Codec.NewDecoder(request.Model), onDelta)
}

// safeDecode runs one decoder step. A panic drops that chunk's delta and
// the stream continues.
func safeDecode(step func(string) string, chunk string) (delta string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("stream chunk processing panicked",
				"panic", fmt.Sprint(r),
				"chunk", utils.TruncateString(chunk, 200),
			)
			delta = ""
		}
	}()
	return step(chunk)
}

// readStream is the single-consumer read loop. It stops at EOF, on a read
// error, or when ctx is done.
func (t *Transport) readStream(ctx context.Context, response *http.Response, decoder ai.DeltaDecoder, onDelta DeltaFunc) (Result, error) {
	var result Result
	var text []byte

	emit := func(delta string) {
		if delta == "" {
			return
		}
		result.Deltas++
		text = append(text, delta...)
		if onDelta != nil {
			onDelta(delta)
		}
	}

	reader := utils.NewUTF8ChunkReader(response.Body)
	for {
		if err := ctx.Err(); err != nil {
			result.Text = string(text)
			return result, err
		}

		chunk, err := reader.Next()
		if err != nil {
			if utils.IsEOF(err) {
				break
			}
			result.Text = string(text)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			return result, fmt.Errorf("%w: %w", ai.ErrStreamProcessing, err)
		}
		emit(safeDecode(decoder.Decode, chunk))
	}
	emit(safeDecode(func(string) string { return decoder.Flush() }, ""))

	result.Text = string(text)
	result.Streamed = true

	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(
			observability.Int(observability.AttrStreamDeltas, result.Deltas),
			observability.Int(observability.AttrStreamChars, len(result.Text)),
		)
	}
	if t.observer != nil {
		t.observer.Counter(observability.MetricStreamDeltas).Add(ctx, int64(result.Deltas))
	}
	return result, nil
}

// route returns the URL, headers and body to post for the transport's mode.
func (t *Transport) route(endpoint string, headers map[string]string, body any, stream bool) (string, map[string]string, any, error) {
	if t.mode != ModeProxied {
		return endpoint, headers, body, nil
	}
	envelope, err := NewEnvelope(endpoint, body, headers, stream)
	if err != nil {
		return "", nil, nil, err
	}
	return t.proxyURL, map[string]string{"Content-Type": ai.ContentTypeJSON}, envelope, nil
}

func (t *Transport) phase(ctx context.Context, phase Phase) {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventPhaseChange,
			observability.String(observability.AttrTransportPhase, phase.String()),
			observability.String(observability.AttrTransportMode, t.mode.String()),
		)
	}
	if t.onPhase != nil {
		t.onPhase(phase)
	}
}

func validateCall(call Call) error {
	if call.Codec == nil {
		return errors.New("transport: call has no codec")
	}
	if call.Endpoint == "" {
		return fmt.Errorf("%w: no endpoint configured", ai.ErrUnsupportedProvider)
	}
	return nil
}
