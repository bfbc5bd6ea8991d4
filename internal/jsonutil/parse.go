// Package jsonutil parses JSON-encoded values carried inside multipart form
// fields. Browser clients send lists (headlines, S3 URLs, Drive files) as
// JSON strings alongside the binary parts.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON unmarshals raw into T. Blank input yields the zero value and no error.
func ParseJSON[T any](raw string) (T, error) {
	var result T
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return result, nil
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		var zero T
		return zero, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview(raw))
	}
	return result, nil
}

// StringList decodes a JSON array of strings from listRaw, dropping blank
// entries. When the list is absent, empty, or not valid JSON, it falls back
// to the single value (if non-blank).
func StringList(listRaw, single string) []string {
	if items, err := ParseJSON[[]string](listRaw); err == nil {
		out := make([]string, 0, len(items))
		for _, s := range items {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	if s := strings.TrimSpace(single); s != "" {
		return []string{s}
	}
	return nil
}

func preview(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
