package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiBackend implements Backend using the official Google Gemini SDK.
type GeminiBackend struct {
	client    *genai.Client
	modelName string
}

// NewGeminiBackend creates a new Gemini backend for one API key.
func NewGeminiBackend(cfg BackendConfig) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for google")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required for google")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GeminiBackend{
		client:    client,
		modelName: cfg.Model,
	}, nil
}

// Close closes the underlying client.
func (b *GeminiBackend) Close() error {
	return b.client.Close()
}

// Generate implements the Backend interface.
func (b *GeminiBackend) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (*Response, error) {
	// A fresh model handle per call keeps concurrent requests from sharing
	// mutable generation settings.
	model := b.client.GenerativeModel(b.modelName)
	model.SetTemperature(float32(cfg.Temperature))
	if cfg.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxOutputTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		// The SDK reports safety-blocked candidates as an error; surface them
		// as a normal candidate so the caller classifies them uniformly.
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return &Response{
				Candidates: []Candidate{{FinishReason: FinishSafety}},
				Model:      b.modelName,
			}, nil
		}
		return nil, fmt.Errorf("google request failed: %w", err)
	}

	result := &Response{Model: b.modelName}
	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		candidate := Candidate{FinishReason: convertGeminiFinishReason(c.FinishReason)}
		if c.Content != nil {
			for _, part := range c.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					candidate.Text += string(text)
				}
			}
		}
		result.Candidates = append(result.Candidates, candidate)
	}

	return result, nil
}

// convertGeminiFinishReason maps the SDK enum to FinishReason.
func convertGeminiFinishReason(r genai.FinishReason) FinishReason {
	switch r {
	case genai.FinishReasonStop:
		return FinishStop
	case genai.FinishReasonMaxTokens:
		return FinishMaxTokens
	case genai.FinishReasonSafety:
		return FinishSafety
	case genai.FinishReasonRecitation:
		return FinishRecitation
	case genai.FinishReasonOther:
		return FinishOther
	default:
		return FinishUnspecified
	}
}
