package interfaces

import (
	"github.com/ternarybob/docquery/internal/models"
)

// Chunker splits parsed document text into embeddable pieces.
type Chunker interface {
	// ChunkText splits unpaginated text; every chunk carries page number 0.
	ChunkText(text string) []models.TextChunk
	// ChunkPages splits paginated text with document-global chunk indexes
	// and 1-based page numbers. A nil slice is an error; empty pages
	// contribute no chunks.
	ChunkPages(pages []string) ([]models.TextChunk, error)
}
