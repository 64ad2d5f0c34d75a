package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/leofalp/aichat/providers/observability"
)

// maxResponseBodySize is the maximum response body size (10 MB). Enforced via
// io.LimitReader to prevent unbounded memory allocation from rogue responses.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// StatusError is returned for non-2xx responses. The body is kept so callers
// can decode the provider's own error message.
type StatusError struct {
	StatusCode  int
	Status      string
	ContentType string
	Body        []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, TruncateString(string(e.Body), 200))
}

// DoPost performs a buffered HTTP POST with a JSON body and returns the raw
// response body. Headers are applied verbatim; a Content-Type header is only
// added when the caller did not set one.
//
// Error Handling Strategy:
//   - Context errors (timeout, cancellation) are propagated immediately
//   - Non-2xx responses return a *StatusError carrying the body
//   - Response body close errors are logged but don't override primary errors
func DoPost(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) ([]byte, error) {
	span := observability.SpanFromContext(ctx)

	response, requestDuration, err := doPost(ctx, client, url, headers, body, false)
	if err != nil {
		return nil, err
	}
	defer CloseWithLog(response.Body)

	respBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if span != nil {
		span.AddEvent(observability.EventHTTPResponse,
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Int(observability.AttrHTTPResponseBodySize, len(respBody)),
			observability.Duration(observability.AttrHTTPDuration, requestDuration),
		)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode:  response.StatusCode,
			Status:      response.Status,
			ContentType: response.Header.Get("Content-Type"),
			Body:        respBody,
		}
	}

	return respBody, nil
}

// DoPostStream performs an HTTP POST and returns the response with its body
// left open for incremental reading. The caller must close the body. On
// non-2xx status the body is read, closed and returned inside a *StatusError.
func DoPostStream(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) (*http.Response, error) {
	span := observability.SpanFromContext(ctx)

	response, requestDuration, err := doPost(ctx, client, url, headers, body, true)
	if err != nil {
		return nil, err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(response.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
		if readErr != nil {
			slog.Warn("failed to read error body", "error", readErr.Error(), "url", url)
		}
		return nil, &StatusError{
			StatusCode:  response.StatusCode,
			Status:      response.Status,
			ContentType: response.Header.Get("Content-Type"),
			Body:        errorBody,
		}
	}

	if span != nil {
		span.AddEvent(observability.EventHTTPStreamStarted,
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Duration(observability.AttrHTTPDuration, requestDuration),
		)
	}

	return response, nil
}

func doPost(ctx context.Context, client *http.Client, url string, headers map[string]string, body any, stream bool) (*http.Response, time.Duration, error) {
	span := observability.SpanFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("error marshaling body: %w", err)
	}

	if span != nil {
		span.AddEvent(observability.EventHTTPRequest,
			observability.String(observability.AttrHTTPMethod, http.MethodPost),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
			observability.Bool(observability.AttrHTTPStream, stream),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, 0, fmt.Errorf("error creating request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if stream && req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/event-stream, application/x-ndjson, */*")
	}

	requestStart := time.Now()
	response, err := httpClient.Do(req)
	requestDuration := time.Since(requestStart)

	if err != nil {
		if span != nil {
			span.AddEvent(observability.EventHTTPError,
				observability.Error(err),
				observability.Duration(observability.AttrHTTPDuration, requestDuration),
			)
		}
		return nil, requestDuration, fmt.Errorf("error sending request: %w", err)
	}

	return response, requestDuration, nil
}

// CloseWithLog closes c and logs any error at WARN level. It is intended for
// use in defer statements where the close error cannot be returned.
func CloseWithLog(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("failed to close resource", "error", err.Error())
	}
}
