// -----------------------------------------------------------------------
// Retrieval Service - Owner-scoped semantic search over stored chunks
// -----------------------------------------------------------------------

package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/interfaces"
	"github.com/ternarybob/docquery/internal/models"
)

// Service implements the Retriever interface: embed the query, then rank
// the owner's chunks by cosine similarity.
type Service struct {
	embedder interfaces.EmbeddingService
	chunks   interfaces.ChunkStorage
	logger   arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.Retriever = (*Service)(nil)

// NewService creates a retrieval service
func NewService(embedder interfaces.EmbeddingService, chunks interfaces.ChunkStorage, logger arbor.ILogger) *Service {
	return &Service{
		embedder: embedder,
		chunks:   chunks,
		logger:   logger,
	}
}

// Search returns at most topK of the owner's chunks meeting the similarity
// threshold. An empty result is a valid outcome. A query embedding failure
// keeps the embedder's models.ErrEmbeddingProvider sentinel; a store
// failure surfaces as models.ErrRetrievalUnavailable.
func (s *Service) Search(ctx context.Context, query, userID string, topK int, threshold float32) ([]models.SourceChunk, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	startTime := time.Now()

	vector, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		s.logger.Error().Err(err).Msg("Query embedding failed")
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	results, err := s.chunks.SearchSimilar(ctx, userID, vector, topK, threshold)
	if err != nil {
		s.logger.Error().Err(err).Msg("Chunk similarity search failed")
		return nil, fmt.Errorf("%w: similarity search failed: %v", models.ErrRetrievalUnavailable, err)
	}

	s.logger.Debug().
		Str("user_id", userID).
		Int("top_k", topK).
		Int("results", len(results)).
		Dur("duration", time.Since(startTime)).
		Msg("Retrieval completed")

	return results, nil
}
