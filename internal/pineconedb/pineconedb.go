package pineconedb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	lcpinecone "github.com/tmc/langchaingo/vectorstores/pinecone"

	"sales-support/internal/models"
)

type Options struct {
	APIKey      string
	Environment string
	ProjectID   string
	// Host pins every index to one data plane host
	Host      string
	Namespace string
}

// Store talks to one pinecone data plane connection per index name.
// Hosts are resolved once and cached.
type Store struct {
	opts     Options
	embedder embeddings.Embedder

	mu     sync.Mutex
	stores map[string]vectorstores.VectorStore

	describe func(ctx context.Context, indexName string) (string, error)
	newStore func(host string) (vectorstores.VectorStore, error)
}

func New(opts Options, embedder embeddings.Embedder) (*Store, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: PINECONE_API_KEY", models.ErrMissingConfiguration)
	}

	s := &Store{
		opts:     opts,
		embedder: embedder,
		stores:   make(map[string]vectorstores.VectorStore),
	}
	s.newStore = func(host string) (vectorstores.VectorStore, error) {
		return lcpinecone.New(
			lcpinecone.WithHost(host),
			lcpinecone.WithAPIKey(opts.APIKey),
			lcpinecone.WithEmbedder(embedder),
			lcpinecone.WithNameSpace(opts.Namespace),
		)
	}
	s.describe = s.describeIndex
	return s, nil
}

func (s *Store) describeIndex(ctx context.Context, indexName string) (string, error) {
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: s.opts.APIKey})
	if err != nil {
		return "", fmt.Errorf("failed to create pinecone client: %w", err)
	}
	idx, err := client.DescribeIndex(ctx, indexName)
	if err != nil {
		return "", err
	}
	return idx.Host, nil
}

// Host returns the data plane host of indexName
func (s *Store) Host(ctx context.Context, indexName string) (string, error) {
	switch {
	case s.opts.Host != "":
		return s.opts.Host, nil
	case s.opts.ProjectID != "" && s.opts.Environment != "":
		return legacyHost(indexName, s.opts.ProjectID, s.opts.Environment), nil
	default:
		host, err := s.describe(ctx, indexName)
		if err != nil {
			if isNotFound(err) {
				return "", fmt.Errorf("%w: %s", models.ErrIndexNotPopulated, indexName)
			}
			return "", err
		}
		return host, nil
	}
}

// legacyHost builds the pod-based index host used before hosts were returned by the control plane
func legacyHost(indexName, projectID, environment string) string {
	return fmt.Sprintf("%s-%s.svc.%s.pinecone.io", indexName, projectID, environment)
}

// notFoundRe matches a 404 status or a not found code in control plane errors,
// never a bare 404 inside a host or id
var notFoundRe = regexp.MustCompile(`(?i)status(?:\s*code)?"?\s*[:=]?\s*404\b|\b404 not found\b|\bnot[ _]found\b`)

func isNotFound(err error) bool {
	return notFoundRe.MatchString(err.Error())
}

func (s *Store) store(ctx context.Context, indexName string) (vectorstores.VectorStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if vs, ok := s.stores[indexName]; ok {
		return vs, nil
	}

	host, err := s.Host(ctx, indexName)
	if err != nil {
		return nil, err
	}
	vs, err := s.newStore(host)
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone store: %w", err)
	}
	log.Debug().Str("index", indexName).Str("host", host).Msg("Pinecone index resolved")
	s.stores[indexName] = vs
	return vs, nil
}

// Upsert embeds and stores the documents. Pinecone assigns new ids, so repeated
// upserts of the same text create duplicates.
func (s *Store) Upsert(ctx context.Context, indexName string, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	vs, err := s.store(ctx, indexName)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrIndexUpsert, err)
	}

	ids, err := vs.AddDocuments(ctx, toSchemaDocuments(indexName, docs))
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrIndexUpsert, err)
	}
	log.Debug().Str("index", indexName).Int("vectors", len(ids)).Msg("Vectors upserted")
	return nil
}

func (s *Store) Search(ctx context.Context, indexName, query string, topK int) ([]models.Chunk, error) {
	vs, err := s.store(ctx, indexName)
	if err != nil {
		if errors.Is(err, models.ErrIndexNotPopulated) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrIndexSearch, err)
	}

	docs, err := vs.SimilaritySearch(ctx, query, max(topK, 1))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrIndexNotPopulated, indexName)
		}
		return nil, fmt.Errorf("%w: %w", models.ErrIndexSearch, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrIndexNotPopulated, indexName)
	}
	return toChunks(docs), nil
}

func toSchemaDocuments(indexName string, docs []models.Document) []schema.Document {
	out := make([]schema.Document, len(docs))
	for i, doc := range docs {
		out[i] = schema.Document{
			PageContent: doc.Content,
			Metadata: map[string]any{
				models.MetadataChunkIndex: doc.Index,
				models.MetadataIndexName:  indexName,
			},
		}
	}
	return out
}

// toChunks keeps the service ranking. Metadata numbers come back as float64.
func toChunks(docs []schema.Document) []models.Chunk {
	chunks := make([]models.Chunk, len(docs))
	for i, doc := range docs {
		c := models.Chunk{Content: doc.PageContent, Score: doc.Score}
		switch v := doc.Metadata[models.MetadataChunkIndex].(type) {
		case float64:
			c.Index = int(v)
		case int:
			c.Index = v
		}
		chunks[i] = c
	}
	return chunks
}
