package models

import (
	"context"
	"fmt"
)

// NewLLMProvider returns a concrete Agent for a provider name.
func NewLLMProvider(ctx context.Context, provider, model, promptPrefix string) (Agent, error) {
	switch provider {
	case "gemini", "google":
		return NewGeminiLLM(ctx, model, promptPrefix)
	case "openai":
		return NewOpenAILLM(model, promptPrefix), nil
	case "anthropic", "claude":
		return NewAnthropicLLM(model, promptPrefix), nil
	case "ollama":
		return NewOllamaLLM(model, promptPrefix)
	case "dummy":
		return NewDummyLLM(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}
