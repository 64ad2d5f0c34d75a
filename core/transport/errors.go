package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
)

// maxErrorMessageLen bounds messages lifted from HTML error pages.
const maxErrorMessageLen = 300

// normalizeError turns a *utils.StatusError into an *ai.APIError. Other
// errors are returned unchanged.
func normalizeError(err error) error {
	var statusErr *utils.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}
	return &ai.APIError{
		StatusCode: statusErr.StatusCode,
		Message:    providerMessage(statusErr),
	}
}

// providerMessage extracts a human-readable message from an error body.
// JSON bodies are searched for the common error fields; HTML error pages
// are converted to markdown. Anything else yields the HTTP status text.
func providerMessage(statusErr *utils.StatusError) string {
	body := strings.TrimSpace(string(statusErr.Body))
	if body == "" {
		return http.StatusText(statusErr.StatusCode)
	}

	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err == nil {
		for _, path := range errorMessagePaths {
			if message, ok := utils.LookupString(decoded, path...); ok && message != "" {
				return message
			}
		}
		return http.StatusText(statusErr.StatusCode)
	}

	if strings.Contains(statusErr.ContentType, "text/html") || strings.HasPrefix(body, "<") {
		markdown, err := htmltomarkdown.ConvertString(body)
		if err == nil && strings.TrimSpace(markdown) != "" {
			return utils.TruncateRunes(strings.TrimSpace(markdown), maxErrorMessageLen, "...")
		}
	}

	return http.StatusText(statusErr.StatusCode)
}

var errorMessagePaths = [][]any{
	{"error", "message"},
	{"error"},
	{"message"},
	{"detail"},
	{"error_description"},
}
