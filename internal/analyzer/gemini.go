package analyzer

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// GeminiCompleter implements Completer against the Gemini API via
// langchaingo.
type GeminiCompleter struct {
	llm *googleai.GoogleAI
}

// NewGeminiCompleter creates a completer for the given model name.
func NewGeminiCompleter(ctx context.Context, apiKey, modelName string) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key required")
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiCompleter{llm: llm}, nil
}

// Complete sends a single prompt and returns the raw completion text.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt,
		llms.WithTemperature(0.2),
	)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}
	return out, nil
}
