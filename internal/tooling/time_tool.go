package tooling

import (
	"context"
	"encoding/json"
	"time"
)

// CurrentTimeTool reports the current date and time.
type CurrentTimeTool struct {
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewCurrentTimeTool() *CurrentTimeTool {
	return &CurrentTimeTool{Now: time.Now}
}

func (t *CurrentTimeTool) Name() string { return "get_current_time" }

func (t *CurrentTimeTool) Description() string {
	return "Returns the current date and time. It takes no arguments."
}

func (t *CurrentTimeTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{},"required":[]}`)
}

func (t *CurrentTimeTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	now := t.Now()
	out, err := json.Marshal(map[string]string{
		"status":       "success",
		"current_time": now.Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
