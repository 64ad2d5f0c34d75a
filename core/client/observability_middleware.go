package client

import (
	"context"
	"time"

	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/observability"
)

// NewObservabilityMiddleware records a span, request metrics and log events
// for every dispatch. The span is stored in the context so the transport
// can attach HTTP and phase events to it.
func NewObservabilityMiddleware(observer observability.Provider) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, dispatch *Dispatch) (*ai.ChatResponse, error) {
			attrs := []observability.Attribute{
				observability.String(observability.AttrProviderID, dispatch.ProviderID),
				observability.String(observability.AttrProviderFamily, dispatch.Family.String()),
				observability.String(observability.AttrModel, dispatch.Model),
				observability.Bool(observability.AttrStreaming, dispatch.Stream),
			}

			ctx, span := observer.StartSpan(ctx, observability.SpanSendMessage, attrs...)
			defer span.End()

			observer.Debug(ctx, "llm send",
				append(attrs, observability.Int(observability.AttrMessageCount, len(dispatch.Call.Request.Messages)))...,
			)

			start := time.Now()
			response, err := next(ctx, dispatch)
			elapsed := time.Since(start)

			observer.Histogram(observability.MetricRequestDuration).Record(ctx, elapsed.Seconds(),
				observability.String(observability.AttrProviderFamily, dispatch.Family.String()),
			)

			if err != nil {
				span.RecordError(err)
				span.SetStatus(observability.StatusError, "llm send failed")

				observer.Error(ctx, "llm send failed",
					observability.Error(err),
					observability.Duration(observability.AttrDuration, elapsed),
					observability.String(observability.AttrProviderID, dispatch.ProviderID),
				)
				observer.Counter(observability.MetricRequestErrors).Add(ctx, 1,
					observability.String(observability.AttrProviderFamily, dispatch.Family.String()),
				)
				observer.Counter(observability.MetricRequestCount).Add(ctx, 1,
					observability.String(observability.AttrStatus, "error"),
				)
				return nil, err
			}

			span.SetAttributes(observability.Bool(observability.AttrStreaming, response.Streamed))
			span.SetStatus(observability.StatusOK, "")

			observer.Info(ctx, "llm send completed",
				observability.String(observability.AttrProviderID, dispatch.ProviderID),
				observability.String(observability.AttrModel, response.Model),
				observability.Duration(observability.AttrDuration, elapsed),
				observability.Int(observability.AttrStreamChars, len(response.Content)),
			)
			observer.Counter(observability.MetricRequestCount).Add(ctx, 1,
				observability.String(observability.AttrStatus, "ok"),
			)
			return response, nil
		}
	}
}
