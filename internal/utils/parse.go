package utils

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kaptinlin/jsonrepair"
)

// ParseLenientJSON unmarshals content into T. When strict decoding fails the
// content is passed through jsonrepair (unquoted keys, single quotes,
// truncated objects, trailing commas) and decoding is retried once.
//
// Example:
//
//	chunk, err := ParseLenientJSON[ollamaChunk](`{response: 'Hi', done: false`)
func ParseLenientJSON[T any](content string) (T, error) {
	var result T

	err := json.Unmarshal([]byte(content), &result)
	if err == nil {
		return result, nil
	}

	repairedJSON, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return result, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
	}

	var repaired T
	if err := json.Unmarshal([]byte(repairedJSON), &repaired); err != nil {
		return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w", result, err)
	}
	return repaired, nil
}

// UnquoteJSONString decodes the body of a JSON string literal (the text
// between the quotes) including escape sequences such as \n and é.
func UnquoteJSONString(raw string) (string, error) {
	var decoded string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &decoded); err != nil {
		unquoted, unquoteErr := strconv.Unquote(`"` + raw + `"`)
		if unquoteErr != nil {
			return "", fmt.Errorf("invalid JSON string literal: %w", err)
		}
		return unquoted, nil
	}
	return decoded, nil
}

// LookupString walks a decoded JSON value along path, where string steps
// index objects and int steps index arrays, and returns the string found at
// the end. ok is false when any step is missing or the leaf is not a string.
//
// Example:
//
//	text, ok := LookupString(payload, "choices", 0, "delta", "content")
func LookupString(value any, path ...any) (string, bool) {
	current := value
	for _, step := range path {
		switch key := step.(type) {
		case string:
			object, isObject := current.(map[string]any)
			if !isObject {
				return "", false
			}
			next, found := object[key]
			if !found {
				return "", false
			}
			current = next
		case int:
			array, isArray := current.([]any)
			if !isArray || key < 0 || key >= len(array) {
				return "", false
			}
			current = array[key]
		default:
			return "", false
		}
	}

	text, ok := current.(string)
	return text, ok
}
