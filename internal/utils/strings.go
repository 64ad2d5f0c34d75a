package utils

import (
	"fmt"
	"strings"
)

const (
	// DefaultMaxStringLength is the default maximum length for truncated strings
	DefaultMaxStringLength = 500
)

// TruncateString shortens s to at most maxLen bytes, appending a suffix
// that records the original total length so callers know data was omitted.
// If maxLen is zero or negative, [DefaultMaxStringLength] is used instead.
// Intended for log output only.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}
	if len(s) <= maxLen {
		return s
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", s[:maxLen], len(s))
}

// TruncateRunes shortens s to at most maxRunes characters and appends
// ellipsis when something was cut. Unlike TruncateString it never splits a
// multi-byte character, so it is safe for user-visible text.
func TruncateRunes(s string, maxRunes int, ellipsis string) string {
	runes := []rune(s)
	if maxRunes < 0 || len(runes) <= maxRunes {
		return s
	}
	return strings.TrimRight(string(runes[:maxRunes]), " ") + ellipsis
}
