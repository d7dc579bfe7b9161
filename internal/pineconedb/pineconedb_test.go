package pineconedb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"

	"sales-support/internal/models"
	"sales-support/internal/testutil"
)

type mockVectorStore struct {
	mock.Mock
}

func (m *mockVectorStore) AddDocuments(ctx context.Context, docs []schema.Document, _ ...vectorstores.Option) ([]string, error) {
	args := m.Called(ctx, docs)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockVectorStore) SimilaritySearch(ctx context.Context, query string, numDocuments int, _ ...vectorstores.Option) ([]schema.Document, error) {
	args := m.Called(ctx, query, numDocuments)
	return args.Get(0).([]schema.Document), args.Error(1)
}

func newTestStore(t *testing.T, opts Options, vs vectorstores.VectorStore) (*Store, *[]string) {
	t.Helper()
	opts.APIKey = "pc-test"
	s, err := New(opts, (&testutil.LetterEmbedder{}).Embedder())
	require.NoError(t, err)

	var hosts []string
	s.newStore = func(host string) (vectorstores.VectorStore, error) {
		hosts = append(hosts, host)
		return vs, nil
	}
	return s, &hosts
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Options{}, (&testutil.LetterEmbedder{}).Embedder())
	assert.ErrorIs(t, err, models.ErrMissingConfiguration)
}

func TestHost_Resolution(t *testing.T) {
	ctx := context.Background()

	s, _ := newTestStore(t, Options{Host: "https://netec-ssm-abc.svc.aped-4627.pinecone.io"}, nil)
	host, err := s.Host(ctx, "netec-ssm")
	require.NoError(t, err)
	assert.Equal(t, "https://netec-ssm-abc.svc.aped-4627.pinecone.io", host)

	s, _ = newTestStore(t, Options{ProjectID: "a1b2c3", Environment: "us-west1-gcp"}, nil)
	host, err = s.Host(ctx, "netec-ssm")
	require.NoError(t, err)
	assert.Equal(t, "netec-ssm-a1b2c3.svc.us-west1-gcp.pinecone.io", host)

	s, _ = newTestStore(t, Options{Environment: "us-west1-gcp"}, nil)
	s.describe = func(_ context.Context, name string) (string, error) {
		return name + "-xyz.svc.aped-4627.pinecone.io", nil
	}
	host, err = s.Host(ctx, "netec-ssm")
	require.NoError(t, err)
	assert.Equal(t, "netec-ssm-xyz.svc.aped-4627.pinecone.io", host)
}

func TestHost_MissingIndex(t *testing.T) {
	s, _ := newTestStore(t, Options{}, nil)
	s.describe = func(context.Context, string) (string, error) {
		return "", errors.New(`failed to describe index "netec-ssm": 404 Not Found`)
	}

	_, err := s.Host(context.Background(), "netec-ssm")
	assert.ErrorIs(t, err, models.ErrIndexNotPopulated)

	_, err = s.Search(context.Background(), "netec-ssm", "Oracle", 4)
	assert.ErrorIs(t, err, models.ErrIndexNotPopulated)
	assert.NotErrorIs(t, err, models.ErrIndexSearch)
}

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{`failed to describe index: {"error":{"code":"NOT_FOUND","message":"Resource netec-ssm not found"},"status":404}`, true},
		{"API returned unexpected status code: 404", true},
		{"404 Not Found", true},
		{`Get "https://netec-ssm-404a.svc.aped-4627.pinecone.io/describe_index_stats": dial tcp: connection refused`, false},
		{"request 84041 failed: status code: 503", false},
		{"index netec-404 is not ready", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isNotFound(errors.New(tc.msg)), tc.msg)
	}
}

func TestHost_DescribeErrorWithNumericHost(t *testing.T) {
	s, _ := newTestStore(t, Options{}, nil)
	s.describe = func(context.Context, string) (string, error) {
		return "", errors.New(`Get "https://api-404.pinecone.io/indexes/netec-ssm": context deadline exceeded`)
	}

	_, err := s.Host(context.Background(), "netec-ssm")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrIndexNotPopulated)
}

func TestStore_Upsert(t *testing.T) {
	vs := &mockVectorStore{}
	s, hosts := newTestStore(t, Options{Host: "idx.pinecone.io"}, vs)

	docs := models.NewDocuments("netec-ssm", []models.Chunk{
		{Content: "Oracle DBA", Index: 0},
		{Content: "Oracle SQL", Index: 1},
	})
	vs.On("AddDocuments", mock.Anything, []schema.Document{
		{PageContent: "Oracle DBA", Metadata: map[string]any{"chunk_index": 0, "index_name": "netec-ssm"}},
		{PageContent: "Oracle SQL", Metadata: map[string]any{"chunk_index": 1, "index_name": "netec-ssm"}},
	}).Return([]string{"a", "b"}, nil).Twice()

	require.NoError(t, s.Upsert(context.Background(), "netec-ssm", docs))
	require.NoError(t, s.Upsert(context.Background(), "netec-ssm", docs))

	vs.AssertExpectations(t)
	assert.Equal(t, []string{"idx.pinecone.io"}, *hosts, "store is built once per index")
}

func TestStore_UpsertError(t *testing.T) {
	vs := &mockVectorStore{}
	s, _ := newTestStore(t, Options{Host: "idx.pinecone.io"}, vs)

	cause := errors.New("rpc error: code = Unavailable")
	vs.On("AddDocuments", mock.Anything, mock.Anything).Return([]string(nil), cause)

	err := s.Upsert(context.Background(), "netec-ssm", []models.Document{{Content: "Oracle"}})
	assert.ErrorIs(t, err, models.ErrIndexUpsert)
	assert.ErrorIs(t, err, cause)

	require.NoError(t, s.Upsert(context.Background(), "netec-ssm", nil))
	vs.AssertNumberOfCalls(t, "AddDocuments", 1)
}

func TestStore_Search(t *testing.T) {
	vs := &mockVectorStore{}
	s, _ := newTestStore(t, Options{Host: "idx.pinecone.io"}, vs)

	vs.On("SimilaritySearch", mock.Anything, "Oracle DBA", 2).Return([]schema.Document{
		{PageContent: "Oracle DBA track", Metadata: map[string]any{"chunk_index": float64(3)}, Score: 0.92},
		{PageContent: "Oracle SQL track", Metadata: map[string]any{"chunk_index": float64(1)}, Score: 0.81},
	}, nil)

	chunks, err := s.Search(context.Background(), "netec-ssm", "Oracle DBA", 2)
	require.NoError(t, err)
	assert.Equal(t, []models.Chunk{
		{Content: "Oracle DBA track", Index: 3, Score: 0.92},
		{Content: "Oracle SQL track", Index: 1, Score: 0.81},
	}, chunks)
}

func TestStore_SearchEmptyIndex(t *testing.T) {
	vs := &mockVectorStore{}
	s, _ := newTestStore(t, Options{Host: "idx.pinecone.io"}, vs)
	vs.On("SimilaritySearch", mock.Anything, "Oracle", 4).Return([]schema.Document{}, nil)

	_, err := s.Search(context.Background(), "netec-ssm", "Oracle", 4)
	assert.ErrorIs(t, err, models.ErrIndexNotPopulated)
}

func TestStore_SearchError(t *testing.T) {
	vs := &mockVectorStore{}
	s, _ := newTestStore(t, Options{Host: "idx.pinecone.io"}, vs)
	cause := errors.New("connection refused")
	vs.On("SimilaritySearch", mock.Anything, "Oracle", 4).Return([]schema.Document(nil), cause)

	_, err := s.Search(context.Background(), "netec-ssm", "Oracle", 4)
	assert.ErrorIs(t, err, models.ErrIndexSearch)
	assert.ErrorIs(t, err, cause)
}
