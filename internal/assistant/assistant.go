// Package assistant is the sales support facade. It splits and indexes course
// material, searches it, and sends prompts to the chat and completion models.
package assistant

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"sales-support/internal/chunker"
	"sales-support/internal/config"
	"sales-support/internal/embedding"
	"sales-support/internal/helper"
	"sales-support/internal/llmservice"
	"sales-support/internal/models"
	"sales-support/internal/prompts"
	"sales-support/internal/vectorindex"
)

// ChatCompleter answers one system + human message pair
type ChatCompleter interface {
	Complete(ctx context.Context, system, human string) (string, error)
}

// PromptCompleter answers a single free-form prompt
type PromptCompleter interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
}

type Deps struct {
	Chat      ChatCompleter
	Completer PromptCompleter
	Splitter  chunker.Splitter
	Embedder  embeddings.Embedder
	Index     vectorindex.Index
	Templates *prompts.Library
}

type Options struct {
	IndexName string
	TopK      int
	// ChatCache keeps every chat reply keyed by its messages for the process lifetime
	ChatCache bool
}

type Assistant struct {
	chat      ChatCompleter
	completer PromptCompleter
	splitter  chunker.Splitter
	embedder  embeddings.Embedder
	index     vectorindex.Index
	templates *prompts.Library

	indexName string
	topK      int

	mu              sync.Mutex
	lastSplit       []models.Chunk
	lastQueryVector []float32
	chatCache       map[string]string
}

func New(deps Deps, opts Options) (*Assistant, error) {
	var missing []string
	if deps.Chat == nil {
		missing = append(missing, "chat")
	}
	if deps.Completer == nil {
		missing = append(missing, "completer")
	}
	if deps.Splitter == nil {
		missing = append(missing, "splitter")
	}
	if deps.Embedder == nil {
		missing = append(missing, "embedder")
	}
	if deps.Index == nil {
		missing = append(missing, "index")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("assistant dependencies missing: %s", strings.Join(missing, ", "))
	}

	if deps.Templates == nil {
		deps.Templates = prompts.NewLibrary()
	}
	if opts.IndexName == "" {
		opts.IndexName = models.DefaultIndexName
	}
	if opts.TopK <= 0 {
		opts.TopK = models.DefaultTopK
	}

	a := &Assistant{
		chat:      deps.Chat,
		completer: deps.Completer,
		splitter:  deps.Splitter,
		embedder:  deps.Embedder,
		index:     deps.Index,
		templates: deps.Templates,
		indexName: opts.IndexName,
		topK:      opts.TopK,
	}
	if opts.ChatCache {
		a.chatCache = make(map[string]string)
	}
	return a, nil
}

// NewFromConfig builds every collaborator from cfg
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Assistant, error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM, cfg.OpenAIAPIKey, cfg.OpenAIOrganization)
	if err != nil {
		return nil, err
	}
	chat, err := llmservice.NewChatClient(&cfg.Chat, cfg.OpenAIAPIKey, cfg.OpenAIOrganization)
	if err != nil {
		return nil, err
	}
	completer := llmservice.NewCompletionClient(&cfg.Completion, cfg.OpenAIAPIKey, cfg.OpenAIOrganization)

	splitter, err := chunker.New(cfg.RAG.Splitter, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	index, err := vectorindex.New(ctx, cfg, embedder)
	if err != nil {
		return nil, err
	}

	return New(Deps{
		Chat:      chat,
		Completer: completer,
		Splitter:  splitter,
		Embedder:  embedder,
		Index:     index,
		Templates: prompts.NewLibrary(),
	}, Options{
		IndexName: cfg.IndexName(),
		TopK:      cfg.RAG.TopK,
		ChatCache: cfg.RAG.ChatCache,
	})
}

// Close releases the index connection, if it holds one
func (a *Assistant) Close() error {
	if c, ok := a.index.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SplitText chunks text and remembers the result
func (a *Assistant) SplitText(text string) ([]models.Chunk, error) {
	chunks, err := a.splitter.Split(text)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.lastSplit = chunks
	a.mu.Unlock()
	return chunks, nil
}

// Embed splits text, embeds its first chunk and upserts every chunk into the index.
// Only the first chunk's vector is computed here and kept as LastQueryVector;
// the index embeds all chunks again itself during the upsert.
func (a *Assistant) Embed(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return models.ErrEmptyText
	}

	chunks, err := a.SplitText(text)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return models.ErrEmptyText
	}

	vector, err := a.embedder.EmbedQuery(ctx, chunks[0].Content)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.lastQueryVector = vector
	a.mu.Unlock()

	if err := a.index.Upsert(ctx, a.indexName, models.NewDocuments(a.indexName, chunks)); err != nil {
		return err
	}
	log.Info().Str("index", a.indexName).Int("chunks", len(chunks)).Msg("Text indexed")
	return nil
}

// EmbeddedPrompt returns the indexed chunks closest to prompt, best first
func (a *Assistant) EmbeddedPrompt(ctx context.Context, prompt string) ([]models.Chunk, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, models.ErrEmptyText
	}
	chunks, err := a.index.Search(ctx, a.indexName, prompt, a.topK)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("index", a.indexName).Int("matches", len(chunks)).Msg("Index searched")
	return chunks, nil
}

// PromptWithTemplate renders tmpl with concept and sends it as one completion prompt.
// An empty model uses the configured completion model.
func (a *Assistant) PromptWithTemplate(ctx context.Context, tmpl prompts.Template, concept, model string) (string, error) {
	prompt, err := tmpl.Format(concept)
	if err != nil {
		return "", err
	}
	return a.completer.Complete(ctx, prompt, model)
}

// CachedChatRequest sends the message pair to the chat model and returns its reply
// unchanged. Replies are only reused when the chat cache is enabled.
func (a *Assistant) CachedChatRequest(ctx context.Context, system, human string) (string, error) {
	var key string
	if a.chatCache != nil {
		key = helper.HashKey(system, human)
		a.mu.Lock()
		reply, ok := a.chatCache[key]
		a.mu.Unlock()
		if ok {
			log.Debug().Str("key", key[:12]).Msg("Chat cache hit")
			return reply, nil
		}
	}

	reply, err := a.chat.Complete(ctx, system, human)
	if err != nil {
		return "", err
	}

	if a.chatCache != nil {
		a.mu.Lock()
		if cached, ok := a.chatCache[key]; ok {
			reply = cached
		} else {
			a.chatCache[key] = reply
		}
		a.mu.Unlock()
	}
	return reply, nil
}

// LastSplitResult returns the chunks of the latest SplitText or Embed call
func (a *Assistant) LastSplitResult() []models.Chunk {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Chunk(nil), a.lastSplit...)
}

// LastQueryVector returns the vector computed by the latest Embed call
func (a *Assistant) LastQueryVector() []float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]float32(nil), a.lastQueryVector...)
}

func (a *Assistant) IndexName() string {
	return a.indexName
}

func (a *Assistant) Templates() *prompts.Library {
	return a.templates
}

// Template looks up a registered template by name
func (a *Assistant) Template(name string) (prompts.Template, error) {
	t, ok := a.templates.Get(name)
	if !ok {
		return prompts.Template{}, fmt.Errorf("unknown template %q, have %s", name, strings.Join(a.templates.Names(), ", "))
	}
	return t, nil
}

