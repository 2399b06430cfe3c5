package generation

import (
	"context"
	"errors"
	"strings"

	"github.com/hyperjump/docqa/internal/apperr"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/openaiclient"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIGenerator answers with the OpenAI chat completions API.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAIGenerator creates a generator from cfg. Extra options are applied after the
// ones derived from cfg.
func NewOpenAIGenerator(cfg config.GenerationConfig, extra ...option.RequestOption) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openaiclient.New(openaiclient.Settings{
			APIKeyEnv:  cfg.APIKeyEnv,
			BaseURL:    cfg.BaseURL,
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout(),
		}, extra...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// Generate sends the prompt as a system and a user message and returns the trimmed reply.
func (g *OpenAIGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
		Model:       openai.ChatModel(g.model),
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		return "", apperr.E(apperr.GenerationService, "generate", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.E(apperr.GenerationService, "generate", errors.New("no choices in completion"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
