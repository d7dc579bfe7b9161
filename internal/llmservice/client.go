package llmservice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"sales-support/internal/config"
	"sales-support/internal/models"
)

// ChatClient sends system + human messages to a chat model and retries transient failures
type ChatClient struct {
	llm         llms.Model
	model       string
	temperature float64
	maxAttempts int
	newBackOff  func() backoff.BackOff
}

// NewChatClient builds the chat client from config
func NewChatClient(llmConfig *config.LLMConfig, apiKey, organization string) (*ChatClient, error) {
	log.Debug().
		Str("model", llmConfig.Model).
		Float64("temperature", llmConfig.Temperature).
		Int("max_attempts", llmConfig.MaxAttempts).
		Msg("Creating chat client")

	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	}
	if organization != "" {
		opts = append(opts, openai.WithOrganization(organization))
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}
	return NewChatClientWithModel(llm, llmConfig.Model, llmConfig.Temperature, llmConfig.MaxAttempts), nil
}

func NewChatClientWithModel(llm llms.Model, model string, temperature float64, maxAttempts int) *ChatClient {
	if maxAttempts < 1 {
		maxAttempts = models.DefaultChatAttempts
	}
	return &ChatClient{
		llm:         llm,
		model:       model,
		temperature: temperature,
		maxAttempts: maxAttempts,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(500*time.Millisecond),
				backoff.WithMaxInterval(5*time.Second),
			)
		},
	}
}

// Complete returns the assistant reply for one system and one human message
func (c *ChatClient) Complete(ctx context.Context, system, human string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, human),
	}
	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.model != "" {
		opts = append(opts, llms.WithModel(c.model))
	}

	attempt := 0
	operation := func() (string, error) {
		attempt++
		resp, err := c.llm.GenerateContent(ctx, messages, opts...)
		if err != nil {
			if !isTransient(err) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no choices returned")
		}
		return resp.Choices[0].Content, nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("Chat request failed, retrying")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxAttempts-1)), ctx)
	reply, err := backoff.RetryNotifyWithData(operation, b, notify)
	if err != nil {
		log.Error().Err(err).Int("attempts", attempt).Msg("Chat request failed")
		return "", fmt.Errorf("%w: %w", models.ErrChatService, err)
	}
	return reply, nil
}

var statusCodePattern = regexp.MustCompile(`status code: (\d{3})`)

// isTransient reports whether a chat failure is worth another attempt.
// Client errors other than rate limiting are final.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	m := statusCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return true
	}
	code, _ := strconv.Atoi(m[1])
	if code == 429 {
		return true
	}
	return code < 400 || code >= 500
}
