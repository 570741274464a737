package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the agent system
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Execution ExecutionConfig `mapstructure:"execution"`
}

// LLMConfig contains LLM provider settings
type LLMConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	Model              string        `mapstructure:"model"`
	BaseURL            string        `mapstructure:"base_url"`
	Temperature        float64       `mapstructure:"temperature"`
	MaxContextTokens   int           `mapstructure:"max_context_tokens"`
	ContextTokenBuffer int           `mapstructure:"context_token_buffer"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// CompletionBudget returns the token budget left for a single completion
// after reserving the response buffer.
func (l LLMConfig) CompletionBudget() int {
	return l.MaxContextTokens - l.ContextTokenBuffer
}

func (l LLMConfig) Validate() error {
	if l.MaxContextTokens <= 0 {
		return fmt.Errorf("llm.max_context_tokens must be > 0")
	}
	if l.ContextTokenBuffer < 0 || l.ContextTokenBuffer >= l.MaxContextTokens {
		return fmt.Errorf("llm.context_token_buffer must be in [0, max_context_tokens)")
	}
	return nil
}

// AgentConfig contains plan execution settings
type AgentConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
}

func (a AgentConfig) Validate() error {
	if a.MaxIterations <= 0 {
		return fmt.Errorf("agent.max_iterations must be > 0")
	}
	return nil
}

// ToolsConfig contains settings for the built-in tools
type ToolsConfig struct {
	ListFilesLimit int `mapstructure:"list_files_limit"`
}

// ExecutionConfig contains execution registry settings
type ExecutionConfig struct {
	GraceSeconds     int `mapstructure:"grace_seconds"`
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
}

// GracePeriod returns the retention window for terminated execution records.
func (e ExecutionConfig) GracePeriod() time.Duration {
	return time.Duration(e.GraceSeconds) * time.Second
}

func (e ExecutionConfig) Validate() error {
	if e.GraceSeconds < 0 {
		return fmt.Errorf("execution.grace_seconds cannot be negative")
	}
	if e.SubscriberBuffer <= 0 {
		return fmt.Errorf("execution.subscriber_buffer must be > 0")
	}
	return nil
}

// envBindings maps viper keys to the recognized environment variables.
var envBindings = map[string]string{
	"llm.api_key":                 "LLM_API_KEY",
	"llm.model":                   "LLM_MODEL",
	"llm.max_context_tokens":      "MAX_CONTEXT_TOKENS",
	"llm.context_token_buffer":    "CONTEXT_TOKEN_BUFFER",
	"agent.max_iterations":        "MAX_AGENT_ITERATIONS",
	"tools.list_files_limit":      "LIST_FILES_LIMIT",
	"execution.grace_seconds":     "EXECUTION_GRACE_SECONDS",
	"execution.subscriber_buffer": "SUBSCRIBER_BUFFER",
}

// LoadConfig loads config from an optional file plus the environment.
// Environment variables override file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_context_tokens", 25000)
	v.SetDefault("llm.context_token_buffer", 2000)
	v.SetDefault("llm.timeout", time.Minute)
	v.SetDefault("agent.max_iterations", 10)
	v.SetDefault("tools.list_files_limit", 20)
	v.SetDefault("execution.grace_seconds", 600)
	v.SetDefault("execution.subscriber_buffer", 64)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := config.LLM.Validate(); err != nil {
		return nil, err
	}
	if err := config.Agent.Validate(); err != nil {
		return nil, err
	}
	if err := config.Execution.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
