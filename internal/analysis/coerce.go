package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Entry is one strengths/improvements item. Synthetic marks entries
// fabricated from the summary fallback rather than sourced from a
// provider, so the UI can render them differently.
type Entry struct {
	Text      string `json:"text"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

const (
	strengthToken    = "strength"
	improvementToken = "improv"

	genericStrength    = "Effective coaching practice demonstrated in this session"
	genericImprovement = "Further development opportunities identified in this session"
)

// StringList normalizes a value that should be a list of strings but
// may arrive as an array, a JSON-encoded array string, a plain string,
// or nothing. The result is never nil and never a raw JSON string.
// Decode failures are handled locally and treated as plain text.
func StringList(v any) []Entry {
	switch t := v.(type) {
	case nil:
		return []Entry{}
	case []Entry:
		return t
	case []string:
		out := make([]Entry, 0, len(t))
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, Entry{Text: s})
			}
		}
		return out
	case []any:
		out := make([]Entry, 0, len(t))
		for _, item := range t {
			if s := asText(item); s != "" {
				out = append(out, Entry{Text: s})
			}
		}
		return out
	case string:
		return coerceString(t)
	case []byte:
		return coerceString(string(t))
	case json.RawMessage:
		return coerceString(string(t))
	default:
		if s := asText(v); s != "" {
			return []Entry{{Text: s}}
		}
		return []Entry{}
	}
}

func coerceString(raw string) []Entry {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return []Entry{}
	}

	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		// Plain non-JSON text: a single-element list.
		return []Entry{{Text: trimmed}}
	}

	switch d := decoded.(type) {
	case []any:
		out := make([]Entry, 0, len(d))
		for _, item := range d {
			if s := asText(item); s != "" {
				out = append(out, Entry{Text: s})
			}
		}
		return out
	case string:
		// JSON-encoded scalar string, possibly itself an encoded array.
		inner := strings.TrimSpace(d)
		if strings.HasPrefix(inner, "[") {
			return coerceString(inner)
		}
		if inner == "" {
			return []Entry{}
		}
		// Not an array inside: keep the original raw string, quotes
		// and all, like any other non-array JSON value.
		return []Entry{{Text: trimmed}}
	case nil:
		return []Entry{}
	default:
		// Valid JSON but not an array: keep the original raw string.
		return []Entry{{Text: trimmed}}
	}
}

// WithSummaryFallback returns entries unchanged when non-empty.
// Otherwise, if the summary narrative contains the indicator token, a
// single generic entry tagged Synthetic is produced so the report
// never renders a bare "no data" state while narrative text exists.
// The substring check is deliberately crude; it mirrors the behavior
// the dashboard has always had and is not an extraction heuristic to
// be improved in place.
func WithSummaryFallback(entries []Entry, summary, token, generic string) []Entry {
	if len(entries) > 0 {
		return entries
	}
	if strings.TrimSpace(summary) == "" {
		return entries
	}
	if strings.Contains(strings.ToLower(summary), token) {
		return []Entry{{Text: generic, Synthetic: true}}
	}
	return entries
}

func asText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64, bool, json.Number:
		return strings.TrimSpace(fmt.Sprint(t))
	default:
		return ""
	}
}

// Texts flattens entries to their display strings.
func Texts(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Text)
	}
	return out
}
