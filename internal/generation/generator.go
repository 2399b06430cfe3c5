// Package generation produces answers from retrieved context with a language model.
package generation

import (
	"context"
	"fmt"

	"github.com/hyperjump/docqa/internal/config"
)

// SystemPrompt instructs the model to answer only from the supplied context.
const SystemPrompt = "You are an assistant answering questions based solely on provided context. " +
	"If the context does not contain the answer, say that you don't know."

// Prompt is a two-message chat prompt.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt returns the prompt for question grounded on context. It is deterministic.
func BuildPrompt(context, question string) Prompt {
	return Prompt{
		System: SystemPrompt,
		User:   "Context:\n" + context + "\n\nQuestion:\n" + question,
	}
}

// Generator turns a prompt into an answer.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// New returns the generator selected by cfg.Provider.
func New(cfg config.GenerationConfig) (Generator, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIGenerator(cfg), nil
	case config.ProviderMock:
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
