// Package vectorindex selects the vector index backend the assistant upserts
// chunks into and searches.
package vectorindex

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"sales-support/internal/chromemdb"
	"sales-support/internal/config"
	"sales-support/internal/db"
	"sales-support/internal/models"
	"sales-support/internal/pineconedb"
)

// Index upserts documents and answers similarity queries. Documents without a
// vector are embedded by the index itself.
type Index interface {
	Upsert(ctx context.Context, indexName string, docs []models.Document) error
	Search(ctx context.Context, indexName, query string, topK int) ([]models.Chunk, error)
}

var (
	_ Index = (*pineconedb.Store)(nil)
	_ Index = (*db.Store)(nil)
	_ Index = (*chromemdb.VectorDBManager)(nil)
)

// New opens the configured backend. Callers close it when it implements io.Closer.
func New(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder) (Index, error) {
	log.Info().Str("type", cfg.VectorStore.Type).Str("index", cfg.IndexName()).Msg("Opening vector index")

	switch cfg.VectorStore.Type {
	case config.StorePinecone:
		return pineconedb.New(pineconedb.Options{
			APIKey:      cfg.PineconeAPIKey,
			Environment: cfg.PineconeEnvironment,
			ProjectID:   cfg.PineconeProjectID,
			Host:        cfg.PineconeHost,
		}, embedder)
	case config.StorePgvector:
		sqldb, err := db.ConnectDB(cfg.VectorStore.DatabaseURL)
		if err != nil {
			return nil, err
		}
		bunDB := db.NewDB(sqldb, cfg.VectorStore.Debug)
		if err := db.InitDB(ctx, bunDB); err != nil {
			_ = bunDB.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return db.NewStore(bunDB, embedder, cfg.VectorStore.Dimensions), nil
	case config.StoreChromem:
		return chromemdb.NewVectorDBManager(cfg.VectorStore.ChromemPath, embedder)
	default:
		return nil, fmt.Errorf("unknown vector store type: %s", cfg.VectorStore.Type)
	}
}
