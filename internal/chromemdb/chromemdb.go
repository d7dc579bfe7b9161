package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"sales-support/internal/helper"
	"sales-support/internal/models"
)

const (
	compress = false
)

// VectorDBManager keeps one chromem collection per index name, either in memory
// or persisted under dbPath
type VectorDBManager struct {
	db     *chromem.DB
	embed  chromem.EmbeddingFunc
	dbPath string
}

// NewVectorDBManager opens the database. An empty dbPath keeps everything in memory.
func NewVectorDBManager(dbPath string, embedder embeddings.Embedder) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if dbPath == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return &VectorDBManager{
		db:     db,
		embed:  EmbeddingFunc(embedder),
		dbPath: dbPath,
	}, nil
}

// EmbeddingFunc adapts an embedder to chromem. Chunks may be blank, so the
// text goes through EmbedDocuments rather than EmbedQuery.
func EmbeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := embedder.EmbedDocuments(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("got %d vectors for one text", len(vectors))
		}
		return vectors[0], nil
	}
}

// Upsert adds the documents to the collection named indexName, creating it on first use
func (m *VectorDBManager) Upsert(ctx context.Context, indexName string, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	c, err := m.db.GetOrCreateCollection(indexName, nil, m.embed)
	if err != nil {
		return fmt.Errorf("%w: failed to create/get collection: %w", models.ErrIndexUpsert, err)
	}

	chromemDocs := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		id := doc.ID
		if id == "" {
			if id, err = helper.GenerateUUID(); err != nil {
				return fmt.Errorf("%w: %w", models.ErrIndexUpsert, err)
			}
		}
		chromemDocs = append(chromemDocs, chromem.Document{
			ID:      id,
			Content: doc.Content,
			Metadata: map[string]string{
				models.MetadataChunkIndex: strconv.Itoa(doc.Index),
				models.MetadataIndexName:  indexName,
			},
			Embedding: doc.Vector,
		})
	}

	if err := c.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: failed to add documents: %w", models.ErrIndexUpsert, err)
	}
	log.Debug().Str("collection", indexName).Int("documents", len(chromemDocs)).Msg("Documents added")
	return nil
}

// Search returns the topK closest chunks, most similar first
func (m *VectorDBManager) Search(ctx context.Context, indexName, query string, topK int) ([]models.Chunk, error) {
	c := m.db.GetCollection(indexName, m.embed)
	if c == nil || c.Count() == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrIndexNotPopulated, indexName)
	}
	if query == "" {
		return nil, fmt.Errorf("%w: %w", models.ErrIndexSearch, models.ErrEmptyText)
	}

	nResults := min(max(topK, 1), c.Count())
	results, err := c.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryText: query,
		NResults:  nResults,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query by similarity: %w", models.ErrIndexSearch, err)
	}

	chunks := make([]models.Chunk, 0, len(results))
	for _, r := range results {
		idx, _ := strconv.Atoi(r.Metadata[models.MetadataChunkIndex])
		chunks = append(chunks, models.Chunk{
			Content: r.Content,
			Index:   idx,
			Score:   r.Similarity,
		})
	}
	return chunks, nil
}

// DeleteCollection drops the collection named indexName
func (m *VectorDBManager) DeleteCollection(indexName string) error {
	if err := m.db.DeleteCollection(indexName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}
