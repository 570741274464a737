package planner

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/akshaymalik1995/llm-agent/models"
)

// ExtractJSON locates the first balanced JSON object in model output,
// tolerating markdown code fences and surrounding prose. The span is
// checked for well-formedness; a parse failure reports the byte position.
func ExtractJSON(text string) (json.RawMessage, error) {
	stripped := stripFences(text)

	span := firstObjectSpan(stripped)
	if span == "" {
		return nil, models.NewError(models.KindMalformedJSON, "no JSON object found in output")
	}

	var probe interface{}
	if err := json.Unmarshal([]byte(span), &probe); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, models.WrapError(models.KindMalformedJSON, err, "invalid JSON at offset %d", syntaxErr.Offset)
		}
		return nil, models.WrapError(models.KindMalformedJSON, err, "invalid JSON")
	}
	return json.RawMessage(span), nil
}

// stripFences removes a leading ``` or ```json fence and its closing fence.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// firstObjectSpan finds the first top-level {...} span by balanced-brace
// scanning, skipping braces inside string literals.
func firstObjectSpan(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
