// Package llm provides the generative-text backends the relay dispatches to.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// FinishReason is the provider-neutral completion reason of a candidate.
type FinishReason string

const (
	FinishUnspecified FinishReason = ""
	FinishStop        FinishReason = "STOP"
	FinishMaxTokens   FinishReason = "MAX_TOKENS"
	FinishSafety      FinishReason = "SAFETY"
	FinishRecitation  FinishReason = "RECITATION"
	FinishOther       FinishReason = "OTHER"
)

// IsSafetyBlock reports whether the reason means the output was withheld by safety filters.
func (r FinishReason) IsSafetyBlock() bool {
	return r == FinishSafety
}

// GenerationConfig holds the fixed generation parameters, set once at startup.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature" toml:"temperature" yaml:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens" toml:"max_output_tokens" yaml:"max_output_tokens"`
}

// Candidate is one completion returned by a backend.
type Candidate struct {
	FinishReason FinishReason `json:"finish_reason"`
	Text         string       `json:"text"`
}

// Response is a backend's answer to a single prompt.
type Response struct {
	Candidates []Candidate `json:"candidates"`
	Model      string      `json:"model,omitempty"`
}

// Backend is the interface for generative-text backends. One Backend is bound
// to exactly one credential.
type Backend interface {
	// Generate sends a single-turn prompt and returns the candidates.
	// Errors carry the provider's human-readable message.
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (*Response, error)

	// Close releases the underlying client.
	Close() error
}

// Provider names accepted by BackendConfig.
const (
	ProviderGoogle    = "google"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// BackendConfig holds configuration for constructing a backend for one key.
type BackendConfig struct {
	Provider string `json:"provider"` // google, openai, anthropic
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url"` // Custom endpoint (openai, anthropic only)
}

// Validate validates the configuration.
func (c *BackendConfig) Validate() error {
	switch c.Provider {
	case ProviderGoogle, ProviderOpenAI, ProviderAnthropic:
	case "":
		return fmt.Errorf("provider is required")
	default:
		return fmt.Errorf("unknown provider: %s", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("api key is required")
	}
	return nil
}

// NewBackend creates a backend for the configured provider.
func NewBackend(cfg BackendConfig) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIBackend(cfg)
	case ProviderAnthropic:
		return NewAnthropicBackend(cfg)
	default:
		return NewGeminiBackend(cfg)
	}
}

// NewBackends creates one backend per key. It fails on the first key that
// cannot be initialized and closes the ones already built.
func NewBackends(base BackendConfig, keys []string) ([]Backend, error) {
	backends := make([]Backend, 0, len(keys))
	for i, key := range keys {
		cfg := base
		cfg.APIKey = key
		b, err := NewBackend(cfg)
		if err != nil {
			for _, built := range backends {
				_ = built.Close()
			}
			return nil, fmt.Errorf("credential %d: %w", i+1, err)
		}
		backends = append(backends, b)
	}
	return backends, nil
}
