package tooling

import (
	"context"
	"encoding/json"
)

// Tool is a capability the plan interpreter can invoke. Execute receives
// arguments already validated against InputSchema and returns a string,
// commonly JSON-encoded; the registry does not interpret it.
type Tool interface {
	Name() string
	Description() string
	InputSchema() json.RawMessage
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Info is the catalog entry published to planners and API clients.
type Info struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}
