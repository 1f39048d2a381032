package badger

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/docquery/internal/interfaces"
	"github.com/ternarybob/docquery/internal/models"
)

// ChunkStorage implements the ChunkStorage interface for Badger. Nearest
// neighbor queries scan the owner's chunks and rank them by cosine
// similarity in memory.
type ChunkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewChunkStorage creates a new ChunkStorage instance
func NewChunkStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ChunkStorage {
	return &ChunkStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ChunkStorage) SaveChunk(ctx context.Context, chunk *models.DocumentChunk) error {
	if chunk.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}
	if chunk.DocumentID == "" {
		return fmt.Errorf("chunk document ID is required")
	}
	if len(chunk.Embedding) == 0 {
		return fmt.Errorf("chunk embedding is required")
	}

	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(chunk.ID, chunk); err != nil {
		return fmt.Errorf("failed to save chunk: %w", err)
	}
	return nil
}

// SearchSimilar scans the owner's chunks, scoring each against the query
// vector. Results meeting the threshold come back ordered by similarity
// descending, ties broken by ascending chunk index, capped at topK.
func (s *ChunkStorage) SearchSimilar(ctx context.Context, userID string, vector []float32, topK int, threshold float32) ([]models.SourceChunk, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is required")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	startTime := time.Now()

	var chunks []models.DocumentChunk
	if err := s.db.Store().Find(&chunks, badgerhold.Where("UserID").Eq(userID).Index("UserID")); err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}

	scored := make([]models.SourceChunk, 0, len(chunks))
	for i := range chunks {
		chunk := &chunks[i]
		if len(chunk.Embedding) != len(vector) {
			s.logger.Warn().
				Str("chunk_id", chunk.ID).
				Int("chunk_dim", len(chunk.Embedding)).
				Int("query_dim", len(vector)).
				Msg("Skipping chunk with mismatched embedding dimension")
			continue
		}
		similarity := cosineSimilarity(vector, chunk.Embedding)
		if similarity < threshold {
			continue
		}
		scored = append(scored, models.SourceChunk{
			DocumentID:    chunk.DocumentID,
			DocumentTitle: chunk.DocumentTitle,
			Content:       chunk.Content,
			Similarity:    similarity,
			ChunkIndex:    chunk.ChunkIndex,
			PageNumber:    chunk.PageNumber,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].ChunkIndex < scored[j].ChunkIndex
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}

	s.logger.Debug().
		Int("scanned", len(chunks)).
		Int("matched", len(scored)).
		Dur("duration", time.Since(startTime)).
		Msg("Similarity search completed")

	return scored, nil
}

func (s *ChunkStorage) CountByDocument(ctx context.Context, documentID string) (int, error) {
	count, err := s.db.Store().Count(&models.DocumentChunk{}, badgerhold.Where("DocumentID").Eq(documentID).Index("DocumentID"))
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}

func (s *ChunkStorage) DeleteByDocument(ctx context.Context, documentID string) error {
	if err := s.db.Store().DeleteMatching(&models.DocumentChunk{}, badgerhold.Where("DocumentID").Eq(documentID).Index("DocumentID")); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// cosineSimilarity returns the cosine of the angle between two vectors of
// equal length. A zero vector on either side scores 0.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
