package llmservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"sales-support/internal/config"
	"sales-support/internal/models"
)

// scriptedModel answers GenerateContent with the queued errors, then with reply
type scriptedModel struct {
	errs     []error
	reply    string
	calls    int
	messages []llms.MessageContent
	options  llms.CallOptions
}

func (m *scriptedModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	m.messages = messages
	for _, opt := range options {
		opt(&m.options)
	}
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func newTestChatClient(m llms.Model, attempts int) *ChatClient {
	c := NewChatClientWithModel(m, "gpt-3.5-turbo", 0.3, attempts)
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func TestChatClient_Complete(t *testing.T) {
	m := &scriptedModel{reply: "Netec offers Oracle DBA courses."}
	c := newTestChatClient(m, 3)

	reply, err := c.Complete(context.Background(), "You are a sales assistant.", "Oracle DBA")
	require.NoError(t, err)
	assert.Equal(t, "Netec offers Oracle DBA courses.", reply)
	assert.Equal(t, 1, m.calls)

	require.Len(t, m.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, m.messages[0].Role)
	assert.Equal(t, llms.TextContent{Text: "You are a sales assistant."}, m.messages[0].Parts[0])
	assert.Equal(t, llms.ChatMessageTypeHuman, m.messages[1].Role)
	assert.Equal(t, llms.TextContent{Text: "Oracle DBA"}, m.messages[1].Parts[0])
	assert.Equal(t, 0.3, m.options.Temperature)
	assert.Equal(t, "gpt-3.5-turbo", m.options.Model)
}

func TestChatClient_RetriesTransientFailures(t *testing.T) {
	m := &scriptedModel{
		errs: []error{
			errors.New("API returned unexpected status code: 503"),
			errors.New("connection reset by peer"),
		},
		reply: "ok",
	}
	c := newTestChatClient(m, 3)

	reply, err := c.Complete(context.Background(), "system", "human")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, 3, m.calls)
}

func TestChatClient_GivesUpAfterMaxAttempts(t *testing.T) {
	cause := errors.New("API returned unexpected status code: 500")
	m := &scriptedModel{errs: []error{cause, cause, cause, cause}}
	c := newTestChatClient(m, 3)

	_, err := c.Complete(context.Background(), "system", "human")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrChatService)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, m.calls)
}

func TestChatClient_DoesNotRetryClientErrors(t *testing.T) {
	cause := errors.New("API returned unexpected status code: 401: invalid api key")
	m := &scriptedModel{errs: []error{cause}}
	c := newTestChatClient(m, 3)

	_, err := c.Complete(context.Background(), "system", "human")
	assert.ErrorIs(t, err, models.ErrChatService)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, m.calls)
}

func TestChatClient_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &scriptedModel{errs: []error{context.Canceled}}
	c := newTestChatClient(m, 3)

	_, err := c.Complete(ctx, "system", "human")
	assert.ErrorIs(t, err, models.ErrChatService)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, m.calls)
}

func TestIsTransient(t *testing.T) {
	cases := map[string]bool{
		"API returned unexpected status code: 500":            true,
		"API returned unexpected status code: 429: slow down": true,
		"API returned unexpected status code: 400: bad input": false,
		"API returned unexpected status code: 404":            false,
		"dial tcp: connection refused":                        true,
	}
	for msg, want := range cases {
		assert.Equal(t, want, isTransient(errors.New(msg)), msg)
	}
	assert.False(t, isTransient(context.DeadlineExceeded))
}

func TestNewChatClient_OverHTTP(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-3.5-turbo", body.Model)
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
			assert.Equal(t, "user", body.Messages[1].Role)
			assert.Equal(t, "Kubernetes", body.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Netec teaches Kubernetes."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c, err := NewChatClient(&config.LLMConfig{
		BaseURL:     srv.URL,
		Model:       "gpt-3.5-turbo",
		Temperature: 0.3,
		MaxAttempts: 3,
	}, "sk-test", "")
	require.NoError(t, err)
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	reply, err := c.Complete(context.Background(), "You are a sales assistant.", "Kubernetes")
	require.NoError(t, err)
	assert.Equal(t, "Netec teaches Kubernetes.", reply)
	assert.Equal(t, int32(2), requests.Load())
}
