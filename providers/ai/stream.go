package ai

import (
	"log/slog"
	"strings"

	"github.com/leofalp/aichat/internal/utils"
)

// DeltaDecoder turns raw network chunks of one streaming response into text
// deltas. Chunk boundaries may fall anywhere; decoders buffer partial lines
// and release them on the next Decode or on Flush. A malformed line
// contributes nothing and never aborts the stream.
type DeltaDecoder interface {
	// Decode consumes a decoded text chunk and returns the text delta it
	// completes, possibly empty.
	Decode(chunk string) string

	// Flush drains any buffered partial input at end of stream.
	Flush() string
}

// PayloadExtractor pulls the delta text out of one SSE data payload. Events
// without text (role markers, usage, stop events) return an empty string and
// a nil error; only unparseable payloads return an error.
type PayloadExtractor func(payload []byte) (text string, err error)

// SSEDecoder decodes Server-Sent Events framed streams. Each complete line is
// handled independently: blank lines, comments, non-data fields and the
// [DONE] sentinel are skipped, the data: prefix is stripped and the payload is
// handed to the family extractor.
type SSEDecoder struct {
	lines   utils.LineBuffer
	extract PayloadExtractor
	family  Family
}

// NewSSEDecoder returns a decoder that applies extract to every data payload.
func NewSSEDecoder(family Family, extract PayloadExtractor) *SSEDecoder {
	return &SSEDecoder{extract: extract, family: family}
}

func (d *SSEDecoder) Decode(chunk string) string {
	return d.decodeLines(d.lines.Feed(chunk))
}

func (d *SSEDecoder) Flush() string {
	rest := d.lines.Flush()
	if rest == "" {
		return ""
	}
	return d.decodeLines([]string{rest})
}

func (d *SSEDecoder) decodeLines(lines []string) string {
	var delta strings.Builder
	for _, line := range lines {
		payload, ok := SSEData(line)
		if !ok {
			continue
		}
		text, err := d.extract([]byte(payload))
		if err != nil {
			slog.Debug("skipping malformed stream line",
				"family", d.family.String(),
				"error", err.Error(),
				"line", utils.TruncateString(line, 200),
			)
			continue
		}
		delta.WriteString(text)
	}
	return delta.String()
}

// SSEData returns the payload of an SSE data line. A bare JSON object line
// without the data: prefix is its own payload. ok is false for blank lines,
// comments, other SSE fields and the [DONE] sentinel.
func SSEData(line string) (payload string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || line == "[DONE]" {
		return "", false
	}
	if strings.HasPrefix(line, "{") {
		return line, true
	}
	payload, found := strings.CutPrefix(line, "data:")
	if !found {
		return "", false
	}
	payload = strings.TrimSpace(payload)
	if payload == "" || payload == "[DONE]" {
		return "", false
	}
	return payload, true
}

// DecodeAll runs a fresh decoder over chunks and returns the concatenated
// deltas, including whatever Flush releases.
func DecodeAll(decoder DeltaDecoder, chunks ...string) string {
	var text strings.Builder
	for _, chunk := range chunks {
		text.WriteString(decoder.Decode(chunk))
	}
	text.WriteString(decoder.Flush())
	return text.String()
}
