package tooling

import (
	"context"
	"encoding/json"

	"github.com/akshaymalik1995/llm-agent/provider"
)

// LocalLLMTool routes a one-off prompt through the configured provider,
// using the model it was constructed with. It lets a plan delegate a
// subtask without a dedicated llm step template.
type LocalLLMTool struct {
	provider provider.Provider
	model    string
}

func NewLocalLLMTool(p provider.Provider, model string) *LocalLLMTool {
	return &LocalLLMTool{provider: p, model: model}
}

func (t *LocalLLMTool) Name() string { return "local_llm" }

func (t *LocalLLMTool) Description() string {
	return "Sends a prompt to a secondary language model and returns the raw completion text. " +
		"Useful for cheap side computations such as reformatting or classification."
}

func (t *LocalLLMTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"prompt": {"type": "string", "description": "The prompt to send to the model."},
			"max_tokens": {"type": "integer", "description": "Optional cap on the response size."}
		},
		"required": ["prompt"]
	}`)
}

func (t *LocalLLMTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	prompt, _ := args["prompt"].(string)
	opts := provider.Options{Model: t.model}
	if mt, ok := args["max_tokens"].(float64); ok && mt > 0 {
		opts.MaxTokens = int(mt)
	}
	return t.provider.Complete(ctx, prompt, opts)
}
