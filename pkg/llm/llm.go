// Package llm wraps single-shot completion calls against an external LLM
// provider. It supports Anthropic and OpenAI-compatible APIs with automatic
// retry on rate limiting and resilient JSON extraction from model output.
package llm

import (
	"context"
	"fmt"
)

// Provider represents an LLM provider.
type Provider string

const (
	Anthropic Provider = "anthropic"
	OpenAI    Provider = "openai"
)

// Config holds configuration for a completion client.
type Config struct {
	Provider    Provider `yaml:"provider" json:"provider"`
	Model       string   `yaml:"model" json:"model"`
	APIKey      string   `yaml:"api_key" json:"api_key"`
	BaseURL     string   `yaml:"base_url" json:"base_url"`
	MaxTokens   int      `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64  `yaml:"temperature" json:"temperature"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:    Anthropic,
		Model:       "claude-3-5-haiku-latest",
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}

// CompleteOptions holds the parameters for one completion request. System
// and Prompt are concatenated into a single prompt; no multi-turn structure
// is assumed.
type CompleteOptions struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Client is the interface for completion providers.
type Client interface {
	// Complete sends one prompt and returns the response text.
	Complete(ctx context.Context, opts CompleteOptions) (string, error)

	// Provider returns the name of the provider.
	Provider() Provider

	// Close releases any resources held by the client.
	Close() error
}

// NewClient creates a completion client based on the provided config,
// wrapped with rate-limit retry.
func NewClient(cfg Config) (Client, error) {
	switch cfg.Provider {
	case Anthropic:
		return newAnthropicClient(cfg)
	case OpenAI:
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// joinPrompt merges an optional system prompt with the user message into
// one prompt string.
func joinPrompt(system, prompt string) string {
	if system == "" {
		return prompt
	}
	return system + "\n\n" + prompt
}
