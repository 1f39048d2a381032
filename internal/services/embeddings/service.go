// -----------------------------------------------------------------------
// Embedding Service - Batched vector generation over a provider
// Splits inputs into provider-sized batches, one API call per batch,
// and restores input order from the provider's declared indexes
// -----------------------------------------------------------------------

package embeddings

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/interfaces"
	"github.com/ternarybob/docquery/internal/models"
)

// Service implements the EmbeddingService interface over an
// EmbeddingProvider.
type Service struct {
	provider  interfaces.EmbeddingProvider
	batchSize int
	logger    arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.EmbeddingService = (*Service)(nil)

// NewService creates an embedding service. batchSize caps the number of
// texts sent to the provider per call.
func NewService(provider interfaces.EmbeddingProvider, batchSize int, logger arbor.ILogger) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	return &Service{
		provider:  provider,
		batchSize: batchSize,
		logger:    logger,
	}, nil
}

// EmbedOne generates the embedding vector for a single text.
func (s *Service) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedMany generates one vector per input text, in input order. The
// operation is all-or-nothing: a failed batch fails the whole call with
// models.ErrEmbeddingProvider and no partial results are returned.
// Position i of the result always holds the vector for texts[i] even if
// the provider answers out of order.
func (s *Service) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty for embedding generation")
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("text at index %d is empty", i)
		}
	}

	startTime := time.Now()
	vectors := make([][]float32, len(texts))

	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		results, err := s.provider.EmbedBatch(ctx, batch)
		if err != nil {
			s.logger.Error().
				Err(err).
				Int("batch_start", start).
				Int("batch_size", len(batch)).
				Msg("Embedding batch failed")
			return nil, fmt.Errorf("%w: batch starting at %d: %v", models.ErrEmbeddingProvider, start, err)
		}
		if len(results) != len(batch) {
			return nil, fmt.Errorf("%w: batch starting at %d returned %d vectors for %d texts", models.ErrEmbeddingProvider, start, len(results), len(batch))
		}

		// Providers declare the index of each result; sort on it rather
		// than trusting response order.
		sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

		for i, item := range results {
			if item.Index != i {
				return nil, fmt.Errorf("%w: batch starting at %d has invalid result index %d", models.ErrEmbeddingProvider, start, item.Index)
			}
			vectors[start+i] = item.Values
		}
	}

	s.logger.Debug().
		Int("text_count", len(texts)).
		Int("batch_size", s.batchSize).
		Dur("duration", time.Since(startTime)).
		Msg("Generated embeddings")

	return vectors, nil
}

// Dimension returns the provider's embedding vector size.
func (s *Service) Dimension() int {
	return s.provider.Dimension()
}

// IsAvailable reports whether the provider currently accepts requests.
func (s *Service) IsAvailable(ctx context.Context) bool {
	if err := s.provider.HealthCheck(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Embedding provider unavailable")
		return false
	}
	return true
}
