// Package rag answers a sales question from the indexed course material.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"sales-support/internal/models"
)

const contextInstruction = "Use the provided context to answer the query. If the context does not cover it, say so."

type Retriever interface {
	EmbeddedPrompt(ctx context.Context, prompt string) ([]models.Chunk, error)
}

type Chatter interface {
	CachedChatRequest(ctx context.Context, system, human string) (string, error)
}

type RAG struct {
	retriever Retriever
	chat      Chatter
}

func NewRAG(retriever Retriever, chat Chatter) *RAG {
	return &RAG{retriever: retriever, chat: chat}
}

// Query retrieves the closest chunks and asks the chat model to answer from them.
// An empty index is not an error, the model then answers without context.
func (r *RAG) Query(ctx context.Context, query string) (string, error) {
	chunks, err := r.retriever.EmbeddedPrompt(ctx, query)
	if err != nil && !errors.Is(err, models.ErrIndexNotPopulated) {
		return "", err
	}
	log.Debug().Int("context_chunks", len(chunks)).Msg("Context retrieved")

	return r.chat.CachedChatRequest(ctx, SystemMessage(), HumanMessage(chunks, query))
}

func SystemMessage() string {
	return models.SalesRole + "\n" + contextInstruction
}

func HumanMessage(chunks []models.Chunk, query string) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Content + "\n\n")
	}
	return fmt.Sprintf("Context:\n%s\nQuery: %s", b.String(), query)
}
