package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBackend implements Backend using the official Anthropic SDK.
type AnthropicBackend struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicBackend creates a new Anthropic backend for one API key.
func NewAnthropicBackend(cfg BackendConfig) (*AnthropicBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for anthropic")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required for anthropic")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicBackend{
		client: &client,
		model:  cfg.Model,
	}, nil
}

// Close is a no-op; the SDK holds no long-lived resources.
func (b *AnthropicBackend) Close() error {
	return nil
}

// Generate implements the Backend interface.
func (b *AnthropicBackend) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (*Response, error) {
	maxTokens := int64(cfg.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = 500
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(cfg.Temperature),
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	// Anthropic returns a single message; its text blocks form one candidate.
	candidate := Candidate{FinishReason: convertAnthropicStopReason(string(resp.StopReason))}
	for _, block := range resp.Content {
		if block.Type == "text" {
			candidate.Text += block.Text
		}
	}

	return &Response{
		Candidates: []Candidate{candidate},
		Model:      string(resp.Model),
	}, nil
}

func convertAnthropicStopReason(r string) FinishReason {
	switch r {
	case "end_turn", "stop_sequence":
		return FinishStop
	case "max_tokens":
		return FinishMaxTokens
	case "refusal":
		return FinishSafety
	case "":
		return FinishUnspecified
	default:
		return FinishOther
	}
}
