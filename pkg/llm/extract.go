package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON pulls a JSON document out of model output. It tries, in
// order: the contents of a fenced code block, the first brace-delimited
// substring, and the raw text. Returns false when none of the three
// parses as JSON.
func ExtractJSON(text string) (json.RawMessage, bool) {
	candidates := make([]string, 0, 3)
	if m := fenceRE.FindStringSubmatch(text); len(m) == 2 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			candidates = append(candidates, text[start:end+1])
		}
	}
	candidates = append(candidates, strings.TrimSpace(text))

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if json.Valid([]byte(c)) {
			return json.RawMessage(c), true
		}
	}
	return nil, false
}

// DecodeJSON extracts and unmarshals JSON from model output into T,
// returning fallback unchanged when nothing parses. This is the only
// recovery strategy for unreliable model output in the system; no shape
// validation happens beyond what the caller's type implies.
func DecodeJSON[T any](text string, fallback T) T {
	raw, ok := ExtractJSON(text)
	if !ok {
		return fallback
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return fallback
	}
	return out
}
