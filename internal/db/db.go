package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"sales-support/internal/helper"
	"sales-support/internal/models"
)

type Document struct {
	bun.BaseModel `bun:"table:ssm_documents,alias:d"`
	ID            string          `bun:"id,pk"`
	IndexName     string          `bun:"index_name,notnull"`
	ChunkIndex    int             `bun:"chunk_index,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	Distance      float64         `bun:"distance,scanonly"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(debug),
		bundebug.WithVerbose(true),
	))
	return db
}

func ConnectDB(databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL", models.ErrMissingConfiguration)
	}
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(databaseURL))), nil
}

// InitDB creates the vector extension, the documents table and its lookup index
func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	_, err = db.NewCreateIndex().
		Model((*Document)(nil)).
		Index("ssm_documents_index_name_idx").
		Column("index_name").
		IfNotExists().
		Exec(ctx)
	return err
}

// Store is a vector index on postgres with pgvector. Vectors missing from
// upserted documents are computed with the embedder.
type Store struct {
	db         *bun.DB
	embedder   embeddings.Embedder
	dimensions int
}

// NewStore returns a store on db. A positive dimensions rejects vectors of any other length.
func NewStore(db *bun.DB, embedder embeddings.Embedder, dimensions int) *Store {
	return &Store{db: db, embedder: embedder, dimensions: dimensions}
}

func (s *Store) Upsert(ctx context.Context, indexName string, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	vectors, err := s.vectors(ctx, docs)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrIndexUpsert, err)
	}

	rows := make([]Document, 0, len(docs))
	for i, doc := range docs {
		id := doc.ID
		if id == "" {
			if id, err = helper.GenerateUUID(); err != nil {
				return fmt.Errorf("%w: %w", models.ErrIndexUpsert, err)
			}
		}
		rows = append(rows, Document{
			ID:         id,
			IndexName:  indexName,
			ChunkIndex: doc.Index,
			Content:    doc.Content,
			Embedding:  pgvector.NewVector(vectors[i]),
		})
	}

	_, err = s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("index_name = EXCLUDED.index_name").
		Set("chunk_index = EXCLUDED.chunk_index").
		Set("content = EXCLUDED.content").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrIndexUpsert, err)
	}
	log.Debug().Str("index", indexName).Int("documents", len(rows)).Msg("Documents stored")
	return nil
}

func (s *Store) vectors(ctx context.Context, docs []models.Document) ([][]float32, error) {
	vectors := make([][]float32, len(docs))
	var missing []int
	var texts []string
	for i, doc := range docs {
		if doc.Vector != nil {
			vectors[i] = doc.Vector
			continue
		}
		missing = append(missing, i)
		texts = append(texts, doc.Content)
	}

	if len(texts) > 0 {
		computed, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(computed) != len(texts) {
			return nil, fmt.Errorf("got %d vectors for %d documents", len(computed), len(texts))
		}
		for j, i := range missing {
			vectors[i] = computed[j]
		}
	}

	if s.dimensions > 0 {
		for _, v := range vectors {
			if len(v) != s.dimensions {
				return nil, fmt.Errorf("vector has %d dimensions, index expects %d", len(v), s.dimensions)
			}
		}
	}
	return vectors, nil
}

// Search ranks the chunks of indexName by cosine distance to the query
func (s *Store) Search(ctx context.Context, indexName, query string, topK int) ([]models.Chunk, error) {
	count, err := s.db.NewSelect().
		Model((*Document)(nil)).
		Where("index_name = ?", indexName).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrIndexSearch, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrIndexNotPopulated, indexName)
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrIndexSearch, err)
	}

	var docs []Document
	err = s.db.NewSelect().
		Model(&docs).
		Column("id", "chunk_index", "content").
		ColumnExpr("embedding <=> ? AS distance", pgvector.NewVector(vector)).
		Where("index_name = ?", indexName).
		OrderExpr("distance").
		Limit(max(topK, 1)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrIndexSearch, err)
	}

	chunks := make([]models.Chunk, 0, len(docs))
	for _, d := range docs {
		chunks = append(chunks, models.Chunk{
			Content: d.Content,
			Index:   d.ChunkIndex,
			Score:   float32(1 - d.Distance),
		})
	}
	return chunks, nil
}

// DropDocuments removes the documents table
func (s *Store) DropDocuments(ctx context.Context) error {
	_, err := s.db.NewDropTable().Model((*Document)(nil)).IfExists().Exec(ctx)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
