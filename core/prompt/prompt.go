// Package prompt builds the default system prompt used when a caller does
// not supply one.
package prompt

import (
	"log/slog"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/aichat/internal/utils"
)

// DefaultTopic is used when no topic label is given.
const DefaultTopic = "programming"

// maxLessonContext bounds the lesson excerpt appended to the prompt.
const maxLessonContext = 4000

// Default returns the system prompt for topic. lessonHTML, when non-empty,
// is converted to markdown and appended as reference material.
func Default(topic, lessonHTML string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultTopic
	}

	var prompt strings.Builder
	prompt.WriteString("You are a helpful ")
	prompt.WriteString(topic)
	prompt.WriteString(" education assistant. Explain concepts clearly, use short code examples where they help, and keep answers focused on the learner's question.")

	if lesson := LessonMarkdown(lessonHTML); lesson != "" {
		prompt.WriteString("\n\nThe learner is currently reading this lesson:\n\n")
		prompt.WriteString(lesson)
	}
	return prompt.String()
}

// LessonMarkdown converts lesson HTML to markdown, truncated for prompt use.
// Conversion failures fall back to the raw text.
func LessonMarkdown(lessonHTML string) string {
	lessonHTML = strings.TrimSpace(lessonHTML)
	if lessonHTML == "" {
		return ""
	}

	markdown, err := htmltomarkdown.ConvertString(lessonHTML)
	if err != nil {
		slog.Debug("lesson context is not convertible HTML", "error", err.Error())
		markdown = lessonHTML
	}
	return utils.TruncateRunes(strings.TrimSpace(markdown), maxLessonContext, "...")
}
