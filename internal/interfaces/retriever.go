package interfaces

import (
	"context"

	"github.com/ternarybob/docquery/internal/models"
)

// Retriever finds the chunks most similar to a query, scoped to one owner.
type Retriever interface {
	// Search embeds the query and returns at most topK chunks meeting the
	// similarity threshold, ordered by similarity descending with ties
	// broken by ascending chunk index. An empty result is a valid outcome,
	// not an error.
	Search(ctx context.Context, query, userID string, topK int, threshold float32) ([]models.SourceChunk, error)
}
