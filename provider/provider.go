package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/akshaymalik1995/llm-agent/config"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

// Options carries per-call completion settings. Zero values fall back to
// the provider's configured defaults.
type Options struct {
	Model        string
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
	ForceJSON    bool
}

// Provider is the interface that all LLM implementations must satisfy.
// Complete returns the completion text for a prompt. Implementations honour
// ctx cancellation and surface it as an llm_cancelled error promptly.
type Provider interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, cfg config.LLMConfig) (Provider, error) {
	switch client {
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("LLM_API_KEY not set")
		}
		return NewOpenAIClient(cfg), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", client)
	}
}
