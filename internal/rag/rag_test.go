package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sales-support/internal/models"
)

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) EmbeddedPrompt(ctx context.Context, prompt string) ([]models.Chunk, error) {
	args := m.Called(ctx, prompt)
	chunks, _ := args.Get(0).([]models.Chunk)
	return chunks, args.Error(1)
}

type mockChatter struct {
	mock.Mock
}

func (m *mockChatter) CachedChatRequest(ctx context.Context, system, human string) (string, error) {
	args := m.Called(ctx, system, human)
	return args.String(0), args.Error(1)
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	retriever := &mockRetriever{}
	chat := &mockChatter{}

	retriever.On("EmbeddedPrompt", ctx, "Oracle DBA").Return([]models.Chunk{
		{Content: "OCP DBA: 5 days"},
		{Content: "OCA SQL: 3 days"},
	}, nil)
	chat.On("CachedChatRequest", ctx, SystemMessage(),
		"Context:\nOCP DBA: 5 days\n\nOCA SQL: 3 days\n\n\nQuery: Oracle DBA").
		Return("Netec runs a 5 day OCP DBA course.", nil)

	answer, err := NewRAG(retriever, chat).Query(ctx, "Oracle DBA")
	require.NoError(t, err)
	assert.Equal(t, "Netec runs a 5 day OCP DBA course.", answer)
	retriever.AssertExpectations(t)
	chat.AssertExpectations(t)
}

func TestQuery_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	retriever := &mockRetriever{}
	chat := &mockChatter{}

	retriever.On("EmbeddedPrompt", ctx, "Java").Return(nil, models.ErrIndexNotPopulated)
	chat.On("CachedChatRequest", ctx, SystemMessage(), "Context:\n\nQuery: Java").Return("No course data yet.", nil)

	answer, err := NewRAG(retriever, chat).Query(ctx, "Java")
	require.NoError(t, err)
	assert.Equal(t, "No course data yet.", answer)
}

func TestQuery_SearchError(t *testing.T) {
	ctx := context.Background()
	retriever := &mockRetriever{}
	chat := &mockChatter{}

	cause := errors.Join(models.ErrIndexSearch, errors.New("timeout"))
	retriever.On("EmbeddedPrompt", ctx, "Java").Return(nil, cause)

	_, err := NewRAG(retriever, chat).Query(ctx, "Java")
	assert.ErrorIs(t, err, models.ErrIndexSearch)
	chat.AssertNotCalled(t, "CachedChatRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestSystemMessage(t *testing.T) {
	assert.Contains(t, SystemMessage(), models.SalesRole)
	assert.Contains(t, SystemMessage(), "provided context")
}
