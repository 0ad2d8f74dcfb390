package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIBackend implements Backend using the official OpenAI SDK. It also
// serves OpenAI-compatible endpoints through BaseURL.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend creates a new OpenAI backend for one API key.
func NewOpenAIBackend(cfg BackendConfig) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for openai")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required for openai")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries belong to the dispatcher, which rotates credentials between attempts.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)

	return &OpenAIBackend{
		client: &client,
		model:  cfg.Model,
	}, nil
}

// Close is a no-op; the SDK holds no long-lived resources.
func (b *OpenAIBackend) Close() error {
	return nil
}

// Generate implements the Backend interface.
func (b *OpenAIBackend) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(cfg.Temperature),
	}
	if cfg.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(cfg.MaxOutputTokens))
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	result := &Response{Model: resp.Model}
	for _, choice := range resp.Choices {
		result.Candidates = append(result.Candidates, Candidate{
			FinishReason: convertOpenAIFinishReason(string(choice.FinishReason)),
			Text:         choice.Message.Content,
		})
	}
	return result, nil
}

func convertOpenAIFinishReason(r string) FinishReason {
	switch r {
	case "stop":
		return FinishStop
	case "length":
		return FinishMaxTokens
	case "content_filter":
		return FinishSafety
	case "":
		return FinishUnspecified
	default:
		return FinishOther
	}
}
