package slogobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/leofalp/aichat/providers/observability"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"", slog.LevelInfo},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if got := ParseFormat("JSON"); got != FormatJSON {
		t.Errorf("ParseFormat(JSON) = %q, want %q", got, FormatJSON)
	}
	if got := ParseFormat("pretty"); got != FormatText {
		t.Errorf("ParseFormat(pretty) = %q, want %q", got, FormatText)
	}
}

func TestObserver_SpanIsAttachedToContext(t *testing.T) {
	var buf bytes.Buffer
	observer := New(WithOutput(&buf), WithLevel(slog.LevelDebug))

	ctx, span := observer.StartSpan(context.Background(), "unit", observability.String("k", "v"))
	if observability.SpanFromContext(ctx) != span {
		t.Fatal("expected span to be retrievable from the returned context")
	}
	span.AddEvent("step")
	span.RecordError(errors.New("boom"))
	span.SetStatus(observability.StatusError, "failed")
	span.End()

	out := buf.String()
	for _, want := range []string{"span started", "span event", "span error", "span ended", "status_description=failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestObserver_CounterAccumulates(t *testing.T) {
	observer := New(WithOutput(&bytes.Buffer{}))

	observer.Counter("requests").Add(context.Background(), 2)
	observer.Counter("requests").Add(context.Background(), 3)

	if got := observer.CounterValue("requests"); got != 5 {
		t.Errorf("CounterValue = %d, want 5", got)
	}
	if got := observer.CounterValue("unknown"); got != 0 {
		t.Errorf("CounterValue(unknown) = %d, want 0", got)
	}
}

func TestObserver_JSONFormatAndLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	observer := New(WithOutput(&buf), WithFormat(FormatJSON), WithLevel(slog.LevelWarn))

	observer.Info(context.Background(), "hidden")
	observer.Warn(context.Background(), "shown", observability.Int("n", 1))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO record should be filtered at WARN level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"n":1`) {
		t.Errorf("expected JSON warn record, got %s", out)
	}
}
