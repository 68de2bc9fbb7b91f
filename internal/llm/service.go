package llm

import (
	"context"
)

// Service defines the interface for LLM text completion. Every pipeline
// component builds its own prompt, appends a JSON-only instruction, and
// extracts the first brace-delimited object from the returned text.
type Service interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Configure(config Config) error
}

// Config represents LLM service configuration
type Config struct {
	Provider    string  `json:"provider"` // openai, anthropic, ollama
	Model       string  `json:"model"`
	APIKey      string  `json:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Provider constants for different LLM providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderLocal     = "local"
)

// Model constants for common models
const (
	ModelGPT4oMini = "gpt-4o-mini"
	ModelGPT4      = "gpt-4"
	ModelClaude    = "claude-3-5-sonnet-latest"
	ModelLlama3    = "llama3"
)

const defaultMaxTokens = 2000
