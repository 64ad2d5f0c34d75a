package generic

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
)

type streamMode int

const (
	modeUnknown streamMode = iota
	// modeLines parses SSE or NDJSON lines.
	modeLines
	// modeRaw passes plain text chunks through untouched.
	modeRaw
)

// decoder handles streams of unknown framing. The first non-blank line
// decides the mode: an SSE field or a line that parses as JSON selects line
// parsing, anything else is treated as a plain text stream. Input is held
// back only while the first line could still turn out to be structured.
type decoder struct {
	family  ai.Family
	mode    streamMode
	pending strings.Builder
	lines   utils.LineBuffer
}

func (d *decoder) Decode(chunk string) string {
	if d.mode == modeUnknown {
		d.pending.WriteString(chunk)
		d.mode = sniffMode(d.pending.String(), false)
		if d.mode == modeUnknown {
			return ""
		}
		chunk = d.pending.String()
		d.pending.Reset()
	}
	if d.mode == modeRaw {
		return chunk
	}
	return d.decodeLines(d.lines.Feed(chunk))
}

func (d *decoder) Flush() string {
	var delta strings.Builder
	if d.mode == modeUnknown {
		buffered := d.pending.String()
		d.pending.Reset()
		d.mode = sniffMode(buffered, true)
		switch d.mode {
		case modeRaw:
			return buffered
		case modeLines:
			delta.WriteString(d.decodeLines(d.lines.Feed(buffered)))
		default:
			return ""
		}
	}
	if d.mode != modeLines {
		return ""
	}
	if rest := d.lines.Flush(); rest != "" {
		delta.WriteString(d.decodeLines([]string{rest}))
	}
	return delta.String()
}

var sseFields = []string{"data:", "event:", "id:", "retry:", ":"}

// sniffMode classifies the buffered start of a stream. final reports that no
// more input will arrive, so a partial first line counts as complete.
func sniffMode(buffered string, final bool) streamMode {
	text := strings.TrimLeft(buffered, " \t\r\n")
	if text == "" {
		return modeUnknown
	}
	line, complete := text, final
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		line, complete = text[:i], true
	}
	line = strings.TrimRight(line, " \t\r")

	for _, field := range sseFields {
		if strings.HasPrefix(line, field) {
			return modeLines
		}
		if !complete && strings.HasPrefix(field, line) {
			return modeUnknown
		}
	}
	if strings.HasPrefix(line, "{") || strings.HasPrefix(line, "[") {
		if !complete {
			return modeUnknown
		}
		if json.Valid([]byte(line)) {
			return modeLines
		}
	}
	return modeRaw
}

func (d *decoder) decodeLines(lines []string) string {
	var delta strings.Builder
	for _, line := range lines {
		delta.WriteString(d.decodeLine(line))
	}
	return delta.String()
}

func (d *decoder) decodeLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	for _, field := range sseFields[1:] {
		if strings.HasPrefix(trimmed, field) {
			return ""
		}
	}

	payload, plain := trimmed, line
	if data, ok := ai.SSEData(trimmed); ok {
		payload, plain = data, data
	} else if strings.HasPrefix(trimmed, "data:") {
		// [DONE] or an empty data field.
		return ""
	}

	var decoded any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		if strings.HasPrefix(payload, "{") {
			slog.Debug("skipping malformed stream line",
				"family", d.family.String(),
				"error", err.Error(),
				"line", utils.TruncateString(trimmed, 200),
			)
			return ""
		}
		return plain + "\n"
	}
	text, _ := firstString(decoded, deltaPaths)
	return text
}
