package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	goopenai "github.com/sashabaranov/go-openai"

	"sales-support/internal/config"
	"sales-support/internal/models"
)

// CompletionClient calls the legacy text completion endpoint
type CompletionClient struct {
	client       *goopenai.Client
	defaultModel string
	temperature  float32
	maxTokens    int
}

func NewCompletionClient(llmConfig *config.LLMConfig, apiKey, organization string) *CompletionClient {
	cfg := goopenai.DefaultConfig(strings.TrimPrefix(apiKey, "Bearer "))
	cfg.OrgID = organization
	if llmConfig.BaseURL != "" {
		cfg.BaseURL = llmConfig.BaseURL
	}

	model := llmConfig.Model
	if model == "" {
		model = models.DefaultCompletionModel
	}
	return &CompletionClient{
		client:       goopenai.NewClientWithConfig(cfg),
		defaultModel: model,
		temperature:  float32(llmConfig.Temperature),
		maxTokens:    llmConfig.MaxTokens,
	}
}

// Complete sends a single prompt. An empty model selects the configured default.
func (c *CompletionClient) Complete(ctx context.Context, prompt, model string) (string, error) {
	if model == "" {
		model = c.defaultModel
	}

	log.Debug().Str("model", model).Int("prompt_len", len(prompt)).Msg("Requesting completion")
	resp, err := c.client.CreateCompletion(ctx, goopenai.CompletionRequest{
		Model:       model,
		Prompt:      prompt,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrChatService, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", models.ErrChatService)
	}
	return resp.Choices[0].Text, nil
}
