package prompt

import (
	"strings"
	"testing"
)

func TestDefault_Topic(t *testing.T) {
	got := Default("Python", "")
	if !strings.HasPrefix(got, "You are a helpful Python education assistant.") {
		t.Errorf("prompt = %q", got)
	}
	if strings.Contains(got, "lesson") {
		t.Errorf("no lesson context expected, got %q", got)
	}
}

func TestDefault_EmptyTopic(t *testing.T) {
	if got := Default("  ", ""); !strings.Contains(got, "helpful programming education assistant") {
		t.Errorf("prompt = %q", got)
	}
}

func TestDefault_LessonContext(t *testing.T) {
	got := Default("Go", "<h2>Channels</h2><p>Channels connect <strong>goroutines</strong>.</p>")

	for _, want := range []string{"## Channels", "**goroutines**", "currently reading"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "<p>") {
		t.Errorf("HTML must be converted, got %q", got)
	}
}

func TestLessonMarkdown_Truncates(t *testing.T) {
	long := "<p>" + strings.Repeat("a", maxLessonContext*2) + "</p>"
	got := LessonMarkdown(long)
	if len([]rune(got)) != maxLessonContext+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("len = %d", len([]rune(got)))
	}
}
