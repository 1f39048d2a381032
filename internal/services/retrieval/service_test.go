package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/models"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (e *fakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return e.vector, e.err
}

func (e *fakeEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = e.vector
	}
	return vectors, nil
}

func (e *fakeEmbedder) Dimension() int { return len(e.vector) }

func (e *fakeEmbedder) IsAvailable(ctx context.Context) bool { return e.err == nil }

type fakeChunkStorage struct {
	results    []models.SourceChunk
	err        error
	lastUserID string
	lastVector []float32
	lastTopK   int
}

func (s *fakeChunkStorage) SaveChunk(ctx context.Context, chunk *models.DocumentChunk) error {
	return nil
}

func (s *fakeChunkStorage) SearchSimilar(ctx context.Context, userID string, vector []float32, topK int, threshold float32) ([]models.SourceChunk, error) {
	s.lastUserID = userID
	s.lastVector = vector
	s.lastTopK = topK
	return s.results, s.err
}

func (s *fakeChunkStorage) CountByDocument(ctx context.Context, documentID string) (int, error) {
	return len(s.results), nil
}

func (s *fakeChunkStorage) DeleteByDocument(ctx context.Context, documentID string) error {
	return nil
}

func TestSearch_PassesQueryVectorAndScope(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	chunks := &fakeChunkStorage{results: []models.SourceChunk{{DocumentID: "doc_1", Content: "hit"}}}
	svc := NewService(embedder, chunks, arbor.NewLogger())

	results, err := svc.Search(context.Background(), "query", "user-1", 5, 0.7)
	require.NoError(t, err)

	assert.Len(t, results, 1)
	assert.Equal(t, "user-1", chunks.lastUserID)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, chunks.lastVector)
	assert.Equal(t, 5, chunks.lastTopK)
}

func TestSearch_EmptyResultIsNotAnError(t *testing.T) {
	svc := NewService(&fakeEmbedder{vector: []float32{1}}, &fakeChunkStorage{}, arbor.NewLogger())

	results, err := svc.Search(context.Background(), "query", "user-1", 5, 0.7)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_EmbeddingFailureKeepsProviderSentinel(t *testing.T) {
	embedder := &fakeEmbedder{err: fmt.Errorf("%w: provider down", models.ErrEmbeddingProvider)}
	svc := NewService(embedder, &fakeChunkStorage{}, arbor.NewLogger())

	_, err := svc.Search(context.Background(), "query", "user-1", 5, 0.7)
	assert.ErrorIs(t, err, models.ErrEmbeddingProvider)
	assert.NotErrorIs(t, err, models.ErrRetrievalUnavailable)
}

func TestSearch_StorageFailureIsRetrievalUnavailable(t *testing.T) {
	chunks := &fakeChunkStorage{err: fmt.Errorf("index corrupt")}
	svc := NewService(&fakeEmbedder{vector: []float32{1}}, chunks, arbor.NewLogger())

	_, err := svc.Search(context.Background(), "query", "user-1", 5, 0.7)
	assert.ErrorIs(t, err, models.ErrRetrievalUnavailable)
}

func TestSearch_Validation(t *testing.T) {
	svc := NewService(&fakeEmbedder{vector: []float32{1}}, &fakeChunkStorage{}, arbor.NewLogger())

	_, err := svc.Search(context.Background(), "", "user-1", 5, 0.7)
	assert.Error(t, err)

	_, err = svc.Search(context.Background(), "query", "", 5, 0.7)
	assert.Error(t, err)
}
