package ai

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingCredential is returned before any network I/O when a provider
	// that requires authentication is called with an empty API key.
	ErrMissingCredential = errors.New("aichat: missing API key")

	// ErrMissingConfiguration is returned when a custom provider is used
	// without an explicit endpoint or model.
	ErrMissingConfiguration = errors.New("aichat: missing provider configuration")

	// ErrUnsupportedProvider is returned for provider ids absent from the registry.
	ErrUnsupportedProvider = errors.New("aichat: unsupported provider")

	// ErrStreamProcessing wraps reader or decoder failures in the middle of a stream.
	ErrStreamProcessing = errors.New("aichat: stream processing failed")

	// ErrHeaderParse marks custom header JSON that could not be parsed. It is
	// only ever carried as a HeaderResult warning, never returned to callers.
	ErrHeaderParse = errors.New("aichat: invalid custom headers")

	// ErrInvalidResponse is returned when a complete response body has no
	// text at the path its family documents.
	ErrInvalidResponse = errors.New("aichat: unexpected response shape")
)

// APIError is a non-2xx answer from a provider or from the proxy.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	message := e.Message
	if message == "" {
		message = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, message)
}

// Retryable reports whether the status is a transient provider condition.
func (e *APIError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		529: // Anthropic "overloaded"
		return true
	}
	return false
}
