package ollama

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/leofalp/aichat/internal/utils"
)

var (
	// responseField pulls the response string out of a line that is not
	// valid JSON even after repair.
	responseField = regexp.MustCompile(`"response"\s*:\s*"((?:[^"\\]|\\.)*)"`)

	// leakedMetadata matches generate-API metadata keys that some Qwen
	// builds echo into the response text.
	leakedMetadata = regexp.MustCompile(`"(?:model|created_at|done|done_reason|context|total_duration|load_duration|prompt_eval_count|prompt_eval_duration|eval_count|eval_duration)"\s*:\s*(?:\[[^\]]*\]|"[^"]*"|[^,}\s]+)\s*,?\s*`)

	// templateTokens are ChatML control tokens that must never reach the user.
	templateTokens = strings.NewReplacer(
		"<|im_start|>assistant\n", "",
		"<|im_start|>", "",
		"<|im_end|>", "",
		"<|endoftext|>", "",
	)
)

// decoder reads Ollama's NDJSON stream. One JSON object per line; lines
// split across network chunks are reassembled before parsing.
type decoder struct {
	profile Profile
	lines   utils.LineBuffer

	// carry holds trailing marker characters withheld from the previous
	// delta so a ** or ``` is never split across two deltas.
	carry string
	// open tracks an unterminated bold span or code fence.
	open bool
	// lineStart is true when the last emitted text ended a line.
	lineStart bool
	// prev is the last emitted character, used to tell 2**3 from **bold**.
	prev rune
}

func newDecoder(profile Profile) *decoder {
	return &decoder{profile: profile}
}

func (d *decoder) Decode(chunk string) string {
	return d.repair(d.decodeLines(d.lines.Feed(chunk)), false)
}

func (d *decoder) Flush() string {
	text := ""
	if rest := d.lines.Flush(); rest != "" {
		text = d.decodeLines([]string{rest})
	}
	return d.repair(text, true)
}

func (d *decoder) decodeLines(lines []string) string {
	var delta strings.Builder
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Tolerate a proxy that re-frames the NDJSON stream as SSE.
		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			line = strings.TrimSpace(payload)
		}

		text := d.decodeLine(line)
		if d.profile.FilterMetadata {
			text = filterMetadata(text)
		}
		delta.WriteString(text)
	}
	return delta.String()
}

func (d *decoder) decodeLine(line string) string {
	var response generateResponse
	err := json.Unmarshal([]byte(line), &response)
	if err == nil {
		if response.Error != "" {
			slog.Warn("ollama stream error", "model_profile", d.profile.Name, "error", response.Error)
		}
		return response.text()
	}

	if !d.profile.FilterMetadata {
		slog.Debug("skipping malformed ollama line",
			"model_profile", d.profile.Name,
			"error", err.Error(),
			"line", utils.TruncateString(line, 200),
		)
		return ""
	}

	if repaired, repairErr := utils.ParseLenientJSON[generateResponse](line); repairErr == nil {
		if text := repaired.text(); text != "" {
			return text
		}
	}

	if match := responseField.FindStringSubmatch(line); match != nil {
		if text, unquoteErr := utils.UnquoteJSONString(match[1]); unquoteErr == nil {
			return text
		}
	}

	slog.Debug("dropping unparseable ollama line",
		"model_profile", d.profile.Name,
		"line", utils.TruncateString(line, 200),
	)
	return ""
}

// filterMetadata removes leaked metadata fragments and template tokens.
func filterMetadata(text string) string {
	if text == "" {
		return text
	}
	text = templateTokens.Replace(text)
	if strings.Contains(text, `":`) {
		text = leakedMetadata.ReplaceAllString(text, "")
	}
	return text
}

// repair applies the profile's chunk-boundary repair. While streaming it
// withholds a trailing run of marker characters; at end of stream it
// releases the carry and closes a span left open.
func (d *decoder) repair(text string, final bool) string {
	if d.profile.Repair == RepairNone {
		return text
	}

	text = d.carry + text
	d.carry = ""

	fence, markerChars := "**", "*_"
	if d.profile.Repair == RepairCodeFence {
		fence, markerChars = "```", "`"
	}

	if !final {
		held := trailingRun(text, markerChars)
		if d.profile.Repair == RepairCodeFence && len(held) >= len(fence) {
			held = ""
		}
		d.carry = held
		text = text[:len(text)-len(held)]
	}

	count := strings.Count(text, fence)
	if d.profile.Repair != RepairCodeFence {
		count = boldMarkers(text, d.prev)
	}
	if count%2 == 1 {
		d.open = !d.open
	}

	if final && d.open {
		d.open = false
		atLineStart := strings.HasSuffix(text, "\n") || (text == "" && d.lineStart)
		if d.profile.Repair == RepairCodeFence && !atLineStart {
			text += "\n"
		}
		text += fence
	}
	if text != "" {
		d.lineStart = strings.HasSuffix(text, "\n")
		d.prev, _ = utf8.DecodeLastRuneInString(text)
	}
	return text
}

// boldMarkers counts the ** markers in text that can open or close a bold
// span. A marker between two letters or digits, as in 2**3, is an operator.
// prev is the character emitted before text.
func boldMarkers(text string, prev rune) int {
	count := 0
	for i := 0; i+1 < len(text); {
		if text[i] != '*' || text[i+1] != '*' {
			i++
			continue
		}
		before := prev
		if i > 0 {
			before, _ = utf8.DecodeLastRuneInString(text[:i])
		}
		after, _ := utf8.DecodeRuneInString(text[i+2:])
		if !(isWordRune(before) && isWordRune(after)) {
			count++
		}
		i += 2
	}
	return count
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// trailingRun returns the longest suffix of s made only of chars.
func trailingRun(s, chars string) string {
	i := len(s)
	for i > 0 && strings.IndexByte(chars, s[i-1]) >= 0 {
		i--
	}
	return s[i:]
}
