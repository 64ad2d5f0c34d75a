package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/aichat/core/client"
	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
)

// LogLevel controls how much detail the logging middleware emits per request.
type LogLevel int

const (
	// LogLevelMinimal logs only the provider, model and total duration.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds the family, message count and whether the text
	// was streamed. This is the recommended default.
	LogLevelStandard

	// LogLevelVerbose adds the last message and the response content, each
	// truncated to 500 characters.
	//
	// WARNING: DO NOT use LogLevelVerbose in production. It logs raw prompt
	// and response text, which may contain sensitive user data.
	LogLevelVerbose
)

// truncateLen is the maximum content length included in verbose log output.
const truncateLen = 500

// NewLoggingMiddleware emits structured slog entries before and after every
// call. The logger must not be nil; use slog.Default() if you have not
// configured one.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, dispatch *client.Dispatch) (*ai.ChatResponse, error) {
			message := "llm send"
			if dispatch.Stream {
				message = "llm stream"
			}
			logger.InfoContext(ctx, message, buildRequestAttrs(dispatch, level)...)

			start := time.Now()
			response, err := next(ctx, dispatch)
			elapsed := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, message+" failed",
					slog.String("provider", dispatch.ProviderID),
					slog.String("model", dispatch.Model),
					slog.Duration("duration", elapsed),
					slog.String("error", err.Error()),
				)
				return nil, err
			}

			logger.InfoContext(ctx, message+" completed",
				buildResponseAttrs(response, elapsed, level)...,
			)
			return response, nil
		}
	}
}

// buildRequestAttrs returns slog attributes for an outgoing dispatch,
// expanding detail according to the requested verbosity level.
func buildRequestAttrs(dispatch *client.Dispatch, level LogLevel) []any {
	attrs := []any{
		slog.String("provider", dispatch.ProviderID),
		slog.String("model", dispatch.Model),
	}

	messages := dispatch.Call.Request.Messages
	if level >= LogLevelStandard {
		attrs = append(attrs,
			slog.String("family", dispatch.Family.String()),
			slog.Int("message_count", len(messages)),
		)
	}

	if level >= LogLevelVerbose && len(messages) > 0 {
		last := messages[len(messages)-1]
		attrs = append(attrs,
			slog.String("last_message_role", string(last.Role)),
			slog.String("last_message_content", utils.TruncateString(last.Content, truncateLen)),
		)
	}

	return attrs
}

// buildResponseAttrs returns slog attributes for a completed response,
// expanding detail according to the requested verbosity level.
func buildResponseAttrs(response *ai.ChatResponse, elapsed time.Duration, level LogLevel) []any {
	attrs := []any{
		slog.String("provider", response.ProviderID),
		slog.String("model", response.Model),
		slog.Duration("duration", elapsed),
	}

	if level >= LogLevelStandard {
		attrs = append(attrs,
			slog.Bool("streamed", response.Streamed),
			slog.Int("content_length", len(response.Content)),
		)
	}

	if level >= LogLevelVerbose && response.Content != "" {
		attrs = append(attrs,
			slog.String("response_content", utils.TruncateString(response.Content, truncateLen)),
		)
	}

	return attrs
}
