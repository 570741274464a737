package planner

import (
	"strings"
	"testing"

	"github.com/akshaymalik1995/llm-agent/models"
)

func TestExtractJSONPlainObject(t *testing.T) {
	raw, err := ExtractJSON(`{"plan": []}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"plan": []}` {
		t.Fatalf("unexpected span: %s", raw)
	}
}

func TestExtractJSONStripsFencesAndProse(t *testing.T) {
	text := "Here is the plan you asked for:\n```json\n{\"plan\": [{\"id\": \"L1\", \"type\": \"llm\"}]}\n```\nLet me know if it helps."
	raw, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(string(raw), `{"plan"`) {
		t.Fatalf("unexpected span: %s", raw)
	}
}

func TestExtractJSONIgnoresBracesInsideStrings(t *testing.T) {
	raw, err := ExtractJSON(`{"reasoning": "use {braces} carefully}"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"reasoning": "use {braces} carefully}"}` {
		t.Fatalf("unexpected span: %s", raw)
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	_, err := ExtractJSON("sorry, I cannot help with that")
	if err == nil {
		t.Fatalf("expected error")
	}
	if models.KindOf(err) != models.KindMalformedJSON {
		t.Fatalf("expected malformed_json, got %s", models.KindOf(err))
	}
}

func TestExtractJSONMalformedSpanReportsPosition(t *testing.T) {
	_, err := ExtractJSON(`{"plan": [}`)
	if err == nil {
		t.Fatalf("expected error")
	}
	if models.KindOf(err) != models.KindMalformedJSON {
		t.Fatalf("expected malformed_json, got %s", models.KindOf(err))
	}
	if !strings.Contains(err.Error(), "offset") {
		t.Fatalf("expected a position in the error, got %v", err)
	}
}
